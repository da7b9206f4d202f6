package server

import (
	"net/http"

	"kudos/internal/api"
	"kudos/internal/models"
	"kudos/internal/store"
)

func (s *Server) handleCreateElement(w http.ResponseWriter, r *http.Request) {
	var req api.ElementCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	resp, err := s.elements.Create(r.Context(), requesterID(r.Context()), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if resp.GUID == "" {
		s.writeJSON(w, http.StatusAccepted, resp)
		return
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListElements(w http.ResponseWriter, r *http.Request) {
	opts, err := parseQueryOptions(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp, err := s.elements.List(r.Context(), requesterID(r.Context()), ElementListQuery{
		TypeName: r.URL.Query().Get("type"),
		Limit:    limit,
		Offset:   offset,
		Options:  opts,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetElement(w http.ResponseWriter, r *http.Request) {
	guid, ok := s.pathGUIDOrBadRequest(w, r)
	if !ok {
		return
	}
	opts, err := parseQueryOptions(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	withLikes, err := queryBool(r, "like_count")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	userID := requesterID(r.Context())
	resp, err := s.elements.Get(r.Context(), userID, guid, opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if withLikes {
		likes, err := s.likes.GetLikes(r.Context(), userID, guid, LikeQuery{
			ForLineage:             opts.ForLineage,
			ForDuplicateProcessing: opts.ForDuplicateProcessing,
			EffectiveTime:          opts.EffectiveTime,
		})
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		count := len(likes)
		resp.LikeCount = &count
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteElement(w http.ResponseWriter, r *http.Request) {
	guid, ok := s.pathGUIDOrBadRequest(w, r)
	if !ok {
		return
	}
	cascade, err := queryBool(r, "cascade")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	query := r.URL.Query()
	src := models.NewExternalSource(query.Get("external_source_guid"), query.Get("external_source_name"))

	if err := s.elements.Delete(r.Context(), requesterID(r.Context()), guid, cascade, src); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ElementDeleteResponse{GUID: guid, Deleted: true})
}

func (s *Server) handleRetireElement(w http.ResponseWriter, r *http.Request) {
	guid, ok := s.pathGUIDOrBadRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.elements.Retire(r.Context(), requesterID(r.Context()), guid)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkDuplicate(w http.ResponseWriter, r *http.Request) {
	guid, ok := s.pathGUIDOrBadRequest(w, r)
	if !ok {
		return
	}
	var req api.ElementDuplicateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	resp, err := s.elements.MarkDuplicate(r.Context(), requesterID(r.Context()), guid, req.DuplicateOf)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func parseQueryOptions(r *http.Request) (store.QueryOptions, error) {
	var opts store.QueryOptions
	var err error
	if opts.ForLineage, err = queryBool(r, "for_lineage"); err != nil {
		return opts, err
	}
	if opts.ForDuplicateProcessing, err = queryBool(r, "for_duplicate_processing"); err != nil {
		return opts, err
	}
	if opts.EffectiveTime, err = queryTime(r, "effective_time"); err != nil {
		return opts, err
	}
	return opts, nil
}
