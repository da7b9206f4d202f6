package server

import (
	"net/http"

	"kudos/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.backend.StoreInfo(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	required, err := s.authService.AuthRequired(r.Context(), s.apiToken != "", s.clock())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	zones := s.zones
	if zones == nil {
		zones = []string{}
	}
	s.writeJSON(w, http.StatusOK, api.InfoResponse{
		DBPath:            s.dbPath,
		SchemaVersion:     info.SchemaVersion,
		EntityCounts:      info.EntityCounts,
		RelationshipCount: info.RelationshipCount,
		SupportedZones:    zones,
		AuthRequired:      required,
	})
}
