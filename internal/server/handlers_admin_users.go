package server

import (
	"fmt"
	"net/http"
	"strings"

	"kudos/internal/api"
	"kudos/internal/store"
)

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuthService(w, r) {
		return
	}

	var req api.AdminUserCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	created, err := s.authService.CreateUser(r.Context(), req.Username, req.Password, req.Role, req.Zones)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.log().Info("user provisioned", "username", created.Username, "role", created.Role, "by", requesterID(r.Context()))
	s.writeJSON(w, http.StatusCreated, toAPIAdminUser(*created))
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuthService(w, r) {
		return
	}

	users, err := s.authService.ListUsers(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := make([]api.AdminUser, 0, len(users))
	for _, user := range users {
		resp = append(resp, toAPIAdminUser(user))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminSetUserDisabled(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuthService(w, r) {
		return
	}
	username, err := pathUsername(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req api.AdminUserSetDisabledRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	updated, err := s.authService.SetUserDisabled(r.Context(), username, req.Disabled)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if updated == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("user not found"), ErrCodeUserNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, toAPIAdminUser(*updated))
}

func (s *Server) handleAdminSetUserZones(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuthService(w, r) {
		return
	}
	username, err := pathUsername(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req api.AdminUserSetZonesRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	updated, err := s.authService.SetUserZones(r.Context(), username, req.Zones)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if updated == nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("user not found"), ErrCodeUserNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, toAPIAdminUser(*updated))
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuthService(w, r) {
		return
	}
	username, err := pathUsername(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	deleted, err := s.authService.DeleteUser(r.Context(), username)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !deleted {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("user not found"), ErrCodeUserNotFound))
		return
	}

	s.writeJSON(w, http.StatusOK, api.AdminUserDeleteResponse{Username: strings.ToLower(username), Deleted: true})
}

func (s *Server) requireAuthService(w http.ResponseWriter, r *http.Request) bool {
	if s.authService != nil {
		return true
	}
	s.writeServiceError(w, r, notImplemented(fmt.Errorf("user provisioning is not supported")))
	return false
}

func pathUsername(r *http.Request) (string, error) {
	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		return "", badRequestCode(fmt.Errorf("username is required"), ErrCodeMissingRequired)
	}
	return username, nil
}

func toAPIAdminUser(user store.AuthUser) api.AdminUser {
	zones := user.Zones
	if zones == nil {
		zones = []string{}
	}
	return api.AdminUser{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Zones:     zones,
		Disabled:  user.Disabled,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
