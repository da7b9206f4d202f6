package server

import (
	"fmt"
	"net/http"

	"kudos/internal/api"
)

func (s *Server) handleAdminGCLikes(w http.ResponseWriter, r *http.Request) {
	var req api.LikeGCRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.Apply && r.Header.Get("X-Confirm") != "true" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("apply requires X-Confirm: true header"), ErrCodeMissingRequired))
		return
	}

	result, err := s.likes.SweepOrphanLikes(r.Context(), req.BatchSize, req.Apply)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.LikeGCResponse{
		CandidateCount: result.CandidateCount,
		DeletedCount:   result.DeletedCount,
		FailedCount:    result.FailedCount,
		CandidateGUIDs: result.CandidateGUIDs,
		DryRun:         result.DryRun,
	})
}
