package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"kudos/internal/api"
)

// withAuth resolves the requesting principal and guards admin routes.
//
// Basic credentials authenticate a local user, who acts as themself. A
// bearer service token acts for the user named in X-Kudos-User. When no
// token is configured and no enabled user exists the server runs open and
// trusts X-Kudos-User, defaulting to anonymous.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := s.authenticate(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if isAdminPath(r.URL.Path) && !s.adminAllowed(r, principal) {
			s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(fmt.Errorf("admin access required"), ErrCodeForbidden))
			return
		}

		recordRequester(w, principal.UserID)
		next.ServeHTTP(w, r.WithContext(contextWithAuthPrincipal(r.Context(), principal)))
	})
}

func (s *Server) authenticate(r *http.Request) (authPrincipal, error) {
	if username, password, ok := r.BasicAuth(); ok {
		return s.authenticateBasic(r, username, password)
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		token = strings.TrimSpace(token)
		if s.apiToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.apiToken)) != 1 {
			return authPrincipal{}, unauthorizedCode(fmt.Errorf("invalid token"), ErrCodeUnauthorized)
		}
		userID := headerUserID(r)
		if userID == "" {
			userID = serviceUserID
		}
		return authPrincipal{AuthType: authTypeBearer, UserID: userID}, nil
	}
	if header != "" {
		return authPrincipal{}, unauthorizedCode(fmt.Errorf("unsupported authorization scheme"), ErrCodeUnauthorized)
	}

	required, err := s.authService.AuthRequired(r.Context(), s.apiToken != "", s.clock())
	if err != nil {
		return authPrincipal{}, storeFailure(err)
	}
	if required {
		return authPrincipal{}, unauthorizedCode(fmt.Errorf("unauthorized"), ErrCodeUnauthorized)
	}

	userID := headerUserID(r)
	if userID == "" {
		userID = anonymousUserID
	}
	return authPrincipal{AuthType: authTypeOpen, UserID: userID}, nil
}

func (s *Server) authenticateBasic(r *http.Request, username, password string) (authPrincipal, error) {
	if s.authService == nil {
		return authPrincipal{}, unauthorizedCode(fmt.Errorf("basic auth is not configured"), ErrCodeUnauthorized)
	}

	now := s.clock()
	key := authAttemptKey(username, r)
	if !s.authLimiter.Allow(key, now) {
		return authPrincipal{}, makeAPIError(http.StatusTooManyRequests, "resource_exhausted", ErrCodeResourceExhausted,
			fmt.Errorf("too many failed login attempts; retry later"))
	}

	user, err := s.authService.Authenticate(r.Context(), username, password)
	if errors.Is(err, errInvalidCredentials) {
		s.authLimiter.Fail(key, now)
		return authPrincipal{}, unauthorizedCode(errInvalidCredentials, ErrCodeUnauthorized)
	}
	if err != nil {
		return authPrincipal{}, storeFailure(err)
	}
	s.authLimiter.Reset(key)
	return authPrincipal{AuthType: authTypeBasic, UserID: user.Username, User: user}, nil
}

// adminAllowed admits admin users and holders of the admin token. Without
// an admin token an open server leaves admin routes open.
func (s *Server) adminAllowed(r *http.Request, principal authPrincipal) bool {
	if principal.isAdmin() {
		return true
	}
	if s.adminToken != "" {
		given := strings.TrimSpace(r.Header.Get(api.AdminTokenHeader))
		return subtle.ConstantTimeCompare([]byte(given), []byte(s.adminToken)) == 1
	}
	return principal.AuthType == authTypeOpen
}

func headerUserID(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(r.Header.Get(api.UserHeader)))
}

func isAdminPath(path string) bool {
	return strings.HasPrefix(path, "/v1/admin/") || path == "/v1/admin"
}
