package server

import (
	"fmt"
	"net/http"
	"strings"

	"kudos/internal/api"
	"kudos/internal/models"
)

func (s *Server) handleListLikes(w http.ResponseWriter, r *http.Request) {
	q, err := parseLikeQuery(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	likes, err := s.likes.GetLikes(r.Context(), requesterID(r.Context()), r.PathValue("guid"), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, likes)
}

func (s *Server) handleSaveLike(w http.ResponseWriter, r *http.Request) {
	var req api.LikeSaveRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.IsPublic == nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("is_public is required"), ErrCodeMissingRequired))
		return
	}

	opts := MutationOptions{
		ExternalSource:         models.NewExternalSource(req.ExternalSourceGUID, req.ExternalSourceName),
		EffectiveTime:          req.EffectiveTime,
		ForLineage:             req.ForLineage,
		ForDuplicateProcessing: req.ForDuplicateProcessing,
	}
	guid, err := s.likes.SaveLike(r.Context(), requesterID(r.Context()), r.PathValue("guid"), *req.IsPublic, opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if guid == "" {
		s.writeJSON(w, http.StatusOK, api.LikeSaveResponse{Declined: true})
		return
	}
	s.writeJSON(w, http.StatusCreated, api.LikeSaveResponse{GUID: guid})
}

func (s *Server) handleRemoveLike(w http.ResponseWriter, r *http.Request) {
	effectiveTime, err := queryTime(r, "effective_time")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	query := r.URL.Query()
	opts := MutationOptions{
		ExternalSource: models.NewExternalSource(query.Get("external_source_guid"), query.Get("external_source_name")),
		EffectiveTime:  effectiveTime,
	}

	guid := strings.TrimSpace(r.PathValue("guid"))
	removed, err := s.likes.RemoveLike(r.Context(), requesterID(r.Context()), guid, opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LikeRemoveResponse{ElementGUID: guid, Removed: removed})
}

func parseLikeQuery(r *http.Request) (LikeQuery, error) {
	var q LikeQuery
	var err error
	if q.StartFrom, err = queryInt(r, "start"); err != nil {
		return q, err
	}
	if q.PageSize, err = queryInt(r, "page_size"); err != nil {
		return q, err
	}
	if q.ForLineage, err = queryBool(r, "for_lineage"); err != nil {
		return q, err
	}
	if q.ForDuplicateProcessing, err = queryBool(r, "for_duplicate_processing"); err != nil {
		return q, err
	}
	if q.EffectiveTime, err = queryTime(r, "effective_time"); err != nil {
		return q, err
	}
	return q, nil
}
