package server

import (
	"net/http"
	"testing"

	"kudos/internal/api"
	"kudos/internal/models"
	"kudos/internal/store"
)

func createElementViaAPI(t *testing.T, h http.Handler, user string, req api.ElementCreateRequest) api.ElementResponse {
	t.Helper()
	w := serveAs(t, h, user, http.MethodPost, "/v1/elements", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	return decodeBody[api.ElementResponse](t, w)
}

func TestElementHandlersCreateGetList(t *testing.T) {
	h, _ := newHandlerTestServer(t, Options{SupportedZones: []string{"finance"}})

	created := createElementViaAPI(t, h, "alice", api.ElementCreateRequest{
		TypeName:      "Asset",
		QualifiedName: "asset:ledger",
		Zones:         []string{"Finance"},
		Properties:    models.Properties{"owner": "treasury"},
	})
	if created.GUID == "" || created.TypeName != "Asset" || created.CreatedBy != "alice" {
		t.Fatalf("unexpected created element: %+v", created.Entity)
	}
	if len(created.Zones) != 1 || created.Zones[0] != "finance" {
		t.Fatalf("expected normalized zone finance, got %v", created.Zones)
	}

	likeW := serveAs(t, h, "bob", http.MethodPost, "/v1/elements/"+created.GUID+"/likes", map[string]any{"is_public": true})
	if likeW.Code != http.StatusCreated {
		t.Fatalf("expected like 201, got %d (%s)", likeW.Code, likeW.Body.String())
	}

	getW := serveAs(t, h, "alice", http.MethodGet, "/v1/elements/"+created.GUID+"?like_count=true", nil)
	if getW.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", getW.Code, getW.Body.String())
	}
	got := decodeBody[api.ElementResponse](t, getW)
	if got.QualifiedName != "asset:ledger" || got.Properties["owner"] != "treasury" {
		t.Fatalf("unexpected element: %+v", got.Entity)
	}
	if got.LikeCount == nil || *got.LikeCount != 1 {
		t.Fatalf("expected like_count 1, got %v", got.LikeCount)
	}

	listW := serveAs(t, h, "alice", http.MethodGet, "/v1/elements?type=Asset", nil)
	if listW.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", listW.Code, listW.Body.String())
	}
	listed := decodeBody[[]api.ElementResponse](t, listW)
	if len(listed) != 1 || listed[0].GUID != created.GUID {
		t.Fatalf("expected one listed asset, got %+v", listed)
	}

	likesW := serveAs(t, h, "alice", http.MethodGet, "/v1/elements?type=Like", nil)
	if likesW.Code != http.StatusOK {
		t.Fatalf("expected 200 listing likes, got %d (%s)", likesW.Code, likesW.Body.String())
	}
	if likes := decodeBody[[]api.ElementResponse](t, likesW); len(likes) != 1 || likes[0].AnchorGUID != created.GUID {
		t.Fatalf("expected the like anchored to the asset, got %+v", likes)
	}
}

func TestElementHandlersValidation(t *testing.T) {
	h, _ := newHandlerTestServer(t, Options{SupportedZones: []string{"finance"}})

	t.Run("missing qualified name", func(t *testing.T) {
		w := serveAs(t, h, "alice", http.MethodPost, "/v1/elements", api.ElementCreateRequest{TypeName: "Asset"})
		expectErrorCode(t, w, http.StatusBadRequest, ErrCodeMissingRequired)
	})

	t.Run("like type is reserved", func(t *testing.T) {
		w := serveAs(t, h, "alice", http.MethodPost, "/v1/elements", api.ElementCreateRequest{TypeName: "Like", QualifiedName: "x"})
		expectErrorCode(t, w, http.StatusBadRequest, ErrCodeInvalidType)
	})

	t.Run("unsupported zone", func(t *testing.T) {
		w := serveAs(t, h, "alice", http.MethodPost, "/v1/elements", api.ElementCreateRequest{QualifiedName: "x", Zones: []string{"sales"}})
		expectErrorCode(t, w, http.StatusBadRequest, ErrCodeInvalidZone)
	})

	t.Run("unknown element is not found", func(t *testing.T) {
		w := serveAs(t, h, "alice", http.MethodGet, "/v1/elements/"+store.NewGUID(), nil)
		expectErrorCode(t, w, http.StatusNotFound, ErrCodeElementNotFound)
	})

	t.Run("limit over maximum", func(t *testing.T) {
		w := serveAs(t, h, "alice", http.MethodGet, "/v1/elements?limit=5000", nil)
		expectErrorCode(t, w, http.StatusBadRequest, ErrCodeInvalidPageSize)
	})
}

func TestElementHandlersDeleteCascade(t *testing.T) {
	h, st := newHandlerTestServer(t, Options{})
	elem := createElementViaAPI(t, h, "alice", api.ElementCreateRequest{TypeName: "Asset", QualifiedName: "asset:cascade"})

	likeW := serveAs(t, h, "bob", http.MethodPost, "/v1/elements/"+elem.GUID+"/likes", map[string]any{"is_public": false})
	if likeW.Code != http.StatusCreated {
		t.Fatalf("expected like 201, got %d (%s)", likeW.Code, likeW.Body.String())
	}

	w := serveAs(t, h, "alice", http.MethodDelete, "/v1/elements/"+elem.GUID, nil)
	expectErrorCode(t, w, http.StatusBadRequest, ErrCodeInvalidArgument)

	w = serveAs(t, h, "alice", http.MethodDelete, "/v1/elements/"+elem.GUID+"?cascade=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected cascade delete 200, got %d (%s)", w.Code, w.Body.String())
	}
	if resp := decodeBody[api.ElementDeleteResponse](t, w); !resp.Deleted || resp.GUID != elem.GUID {
		t.Fatalf("unexpected delete response: %+v", resp)
	}
	if got := likeCount(t, st); got != 0 {
		t.Fatalf("expected cascade to remove attached likes, %d stored", got)
	}

	w = serveAs(t, h, "alice", http.MethodDelete, "/v1/elements/"+elem.GUID, nil)
	expectErrorCode(t, w, http.StatusNotFound, ErrCodeElementNotFound)
}

func TestElementHandlersRetireAndDuplicate(t *testing.T) {
	h, _ := newHandlerTestServer(t, Options{})
	original := createElementViaAPI(t, h, "alice", api.ElementCreateRequest{QualifiedName: "glossary:revenue"})
	copyElem := createElementViaAPI(t, h, "alice", api.ElementCreateRequest{QualifiedName: "glossary:revenue-copy"})

	dupW := serveAs(t, h, "alice", http.MethodPost, "/v1/elements/"+copyElem.GUID+"/duplicate", api.ElementDuplicateRequest{DuplicateOf: original.GUID})
	if dupW.Code != http.StatusOK {
		t.Fatalf("expected duplicate 200, got %d (%s)", dupW.Code, dupW.Body.String())
	}
	if dup := decodeBody[api.ElementResponse](t, dupW); dup.DuplicateOf != original.GUID {
		t.Fatalf("expected duplicate_of %s, got %+v", original.GUID, dup.Entity)
	}

	hidden := serveAs(t, h, "alice", http.MethodGet, "/v1/elements/"+copyElem.GUID, nil)
	expectErrorCode(t, hidden, http.StatusNotFound, ErrCodeElementNotFound)
	visible := serveAs(t, h, "alice", http.MethodGet, "/v1/elements/"+copyElem.GUID+"?for_duplicate_processing=true", nil)
	if visible.Code != http.StatusOK {
		t.Fatalf("expected duplicate to be visible for duplicate processing, got %d", visible.Code)
	}

	retireW := serveAs(t, h, "alice", http.MethodPost, "/v1/elements/"+original.GUID+"/retire", nil)
	if retireW.Code != http.StatusOK {
		t.Fatalf("expected retire 200, got %d (%s)", retireW.Code, retireW.Body.String())
	}
	if retired := decodeBody[api.ElementResponse](t, retireW); retired.Status != models.StatusMemento {
		t.Fatalf("expected memento status, got %s", retired.Status)
	}

	likeW := serveAs(t, h, "bob", http.MethodPost, "/v1/elements/"+original.GUID+"/likes", map[string]any{"is_public": true})
	expectErrorCode(t, likeW, http.StatusBadRequest, ErrCodeElementNotFound)

	lineageW := serveAs(t, h, "bob", http.MethodPost, "/v1/elements/"+original.GUID+"/likes", map[string]any{"is_public": true, "for_lineage": true})
	if lineageW.Code != http.StatusCreated {
		t.Fatalf("expected like on memento with for_lineage, got %d (%s)", lineageW.Code, lineageW.Body.String())
	}
}
