package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Elements.
	mux.HandleFunc("POST /v1/elements", s.handleCreateElement)
	mux.HandleFunc("GET /v1/elements", s.handleListElements)
	mux.HandleFunc("GET /v1/elements/{guid}", s.handleGetElement)
	mux.HandleFunc("DELETE /v1/elements/{guid}", s.handleDeleteElement)
	mux.HandleFunc("POST /v1/elements/{guid}/retire", s.handleRetireElement)
	mux.HandleFunc("POST /v1/elements/{guid}/duplicate", s.handleMarkDuplicate)

	// Likes.
	mux.HandleFunc("GET /v1/elements/{guid}/likes", s.handleListLikes)
	mux.HandleFunc("POST /v1/elements/{guid}/likes", s.handleSaveLike)
	mux.HandleFunc("DELETE /v1/elements/{guid}/likes", s.handleRemoveLike)

	// Admin.
	mux.HandleFunc("POST /v1/admin/gc/likes", s.handleAdminGCLikes)
	mux.HandleFunc("POST /v1/admin/users", s.handleAdminCreateUser)
	mux.HandleFunc("GET /v1/admin/users", s.handleAdminListUsers)
	mux.HandleFunc("PATCH /v1/admin/users/{username}", s.handleAdminSetUserDisabled)
	mux.HandleFunc("PUT /v1/admin/users/{username}/zones", s.handleAdminSetUserZones)
	mux.HandleFunc("DELETE /v1/admin/users/{username}", s.handleAdminDeleteUser)

	return s.withRequestLogging(s.withAuth(mux))
}
