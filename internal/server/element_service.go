package server

import (
	"context"
	"fmt"
	"strings"

	"kudos/internal/api"
	"kudos/internal/models"
	"kudos/internal/store"
)

const (
	defaultElementListLimit = 100
	maxElementListLimit     = 1000
)

// ElementService centralizes element validation and defaults.
type ElementService struct {
	store store.ElementStore
	zones []string
}

// NewElementService constructs an ElementService.
func NewElementService(elementStore store.ElementStore, supportedZones []string) *ElementService {
	return &ElementService{store: elementStore, zones: append([]string(nil), supportedZones...)}
}

// ElementListQuery selects elements for listing.
type ElementListQuery struct {
	TypeName string
	Limit    int
	Offset   int
	Options  store.QueryOptions
}

// Create creates an element from a request. A repository that declines the
// type yields a response with an empty GUID.
func (s *ElementService) Create(ctx context.Context, userID string, req api.ElementCreateRequest) (api.ElementResponse, error) {
	var resp api.ElementResponse
	if err := s.ready(); err != nil {
		return resp, err
	}
	userID, err := requireUserID(userID)
	if err != nil {
		return resp, err
	}

	typeName, err := normalizeTypeName(req.TypeName)
	if err != nil {
		return resp, err
	}
	qualifiedName := strings.TrimSpace(req.QualifiedName)
	if qualifiedName == "" {
		return resp, badRequestCode(fmt.Errorf("qualified_name is required"), ErrCodeMissingRequired)
	}
	zones, err := normalizeZones(req.Zones)
	if err != nil {
		return resp, err
	}
	if err := checkSupportedZones(zones, s.zones); err != nil {
		return resp, err
	}
	anchorGUID := ""
	if strings.TrimSpace(req.AnchorGUID) != "" {
		anchorGUID, err = requireGUID(req.AnchorGUID, "anchor_guid")
		if err != nil {
			return resp, err
		}
	}
	if req.EffectiveFrom != nil && req.EffectiveTo != nil && !req.EffectiveFrom.Before(*req.EffectiveTo) {
		return resp, badRequestCode(fmt.Errorf("effective_from must be before effective_to"), ErrCodeInvalidTimeFilter)
	}

	src := models.NewExternalSource(req.ExternalSourceGUID, req.ExternalSourceName)
	guid, err := s.store.CreateEntity(ctx, userID, src, store.NewEntity{
		TypeName:      typeName,
		QualifiedName: qualifiedName,
		Properties:    req.Properties,
		Zones:         zones,
		AnchorGUID:    anchorGUID,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
	}, nil)
	if err != nil {
		return resp, classifyStoreError(err)
	}
	if guid == "" {
		resp.TypeName = typeName
		resp.QualifiedName = qualifiedName
		return resp, nil
	}

	entity, err := s.store.GetEntity(ctx, userID, guid, store.QueryOptions{ForLineage: true, ForDuplicateProcessing: true})
	if err != nil {
		return resp, classifyStoreError(err)
	}
	return api.ElementResponse{Entity: entity}, nil
}

// Get returns one element visible under opts. Supported zones always apply.
func (s *ElementService) Get(ctx context.Context, userID, guid string, opts store.QueryOptions) (api.ElementResponse, error) {
	var resp api.ElementResponse
	if err := s.ready(); err != nil {
		return resp, err
	}
	userID, err := requireUserID(userID)
	if err != nil {
		return resp, err
	}
	guid, err = requireGUID(guid, "element guid")
	if err != nil {
		return resp, err
	}

	opts.Zones = s.zones
	entity, err := s.store.GetEntity(ctx, userID, guid, opts)
	if err != nil {
		return resp, elementLookupError(err, guid)
	}
	return api.ElementResponse{Entity: entity}, nil
}

// List returns elements the user may read, newest first.
func (s *ElementService) List(ctx context.Context, userID string, q ElementListQuery) ([]api.ElementResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	userID, err := requireUserID(userID)
	if err != nil {
		return nil, err
	}

	typeName := strings.TrimSpace(q.TypeName)
	if typeName != "" && !models.IsAttachmentType(typeName) {
		if typeName, err = normalizeTypeName(typeName); err != nil {
			return nil, err
		}
	}
	limit := q.Limit
	switch {
	case limit == 0:
		limit = defaultElementListLimit
	case limit > maxElementListLimit:
		return nil, badRequestCode(fmt.Errorf("limit must be <= %d", maxElementListLimit), ErrCodeInvalidPageSize)
	}

	opts := q.Options
	opts.Zones = s.zones
	entities, err := s.store.ListEntities(ctx, userID, store.EntityFilter{
		TypeName:     typeName,
		Limit:        limit,
		Offset:       q.Offset,
		QueryOptions: opts,
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}

	resp := make([]api.ElementResponse, 0, len(entities))
	for _, entity := range entities {
		resp = append(resp, api.ElementResponse{Entity: entity})
	}
	return resp, nil
}

// Delete removes an element. Without cascade an element that still owns
// anchored elements or Likes is rejected.
func (s *ElementService) Delete(ctx context.Context, userID, guid string, cascade bool, src *models.ExternalSource) error {
	if err := s.ready(); err != nil {
		return err
	}
	userID, err := requireUserID(userID)
	if err != nil {
		return err
	}
	guid, err = requireGUID(guid, "element guid")
	if err != nil {
		return err
	}

	if err := s.store.DeleteEntity(ctx, userID, src, guid, models.TypeReferenceable, cascade, nil); err != nil {
		return elementLookupError(err, guid)
	}
	return nil
}

// Retire moves an element to memento status.
func (s *ElementService) Retire(ctx context.Context, userID, guid string) (api.ElementResponse, error) {
	var resp api.ElementResponse
	if err := s.ready(); err != nil {
		return resp, err
	}
	userID, err := requireUserID(userID)
	if err != nil {
		return resp, err
	}
	guid, err = requireGUID(guid, "element guid")
	if err != nil {
		return resp, err
	}

	entity, err := s.store.RetireEntity(ctx, userID, guid)
	if err != nil {
		return resp, elementLookupError(err, guid)
	}
	return api.ElementResponse{Entity: entity}, nil
}

// MarkDuplicate records guid as a duplicate of duplicateOf.
func (s *ElementService) MarkDuplicate(ctx context.Context, userID, guid, duplicateOf string) (api.ElementResponse, error) {
	var resp api.ElementResponse
	if err := s.ready(); err != nil {
		return resp, err
	}
	userID, err := requireUserID(userID)
	if err != nil {
		return resp, err
	}
	guid, err = requireGUID(guid, "element guid")
	if err != nil {
		return resp, err
	}
	duplicateOf, err = requireGUID(duplicateOf, "duplicate_of")
	if err != nil {
		return resp, err
	}

	entity, err := s.store.MarkDuplicate(ctx, userID, guid, duplicateOf)
	if err != nil {
		return resp, elementLookupError(err, guid)
	}
	return api.ElementResponse{Entity: entity}, nil
}

func (s *ElementService) ready() error {
	if s == nil || s.store == nil {
		return internalError(fmt.Errorf("element service is not configured"))
	}
	return nil
}

// elementLookupError reports unknown elements as 404 on the element routes,
// where the element itself is the addressed resource.
func elementLookupError(err error, guid string) error {
	classified := classifyStoreError(err)
	if errorNumericCode(httpStatusFromError(classified), classified) == ErrCodeElementNotFound {
		return notFoundCode(fmt.Errorf("element %s not found", guid), ErrCodeElementNotFound)
	}
	return classified
}
