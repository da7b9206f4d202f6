package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"kudos/internal/models"
	"kudos/internal/store"
)

const (
	apiTokenEnvKey    = "KUDOS_API_TOKEN"
	adminTokenEnvKey  = "KUDOS_ADMIN_TOKEN"
	allowRemoteEnvKey = "KUDOS_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
)

// Backend is everything the server needs from the repository.
type Backend interface {
	store.RepositoryStore
	store.AnchorResolver
	store.ElementStore
	store.OrphanStore
	store.AuthStore
	StoreInfo(ctx context.Context) (store.StoreInfo, error)
}

var _ Backend = (*store.Store)(nil)

// Options tunes a Server.
type Options struct {
	DBPath         string
	SupportedZones []string
	MaxPageSize    int
	GCBatchSize    int
	OrphanGrace    time.Duration
}

// Server wraps HTTP handlers for the kudos API.
type Server struct {
	addr        string
	dbPath      string
	backend     Backend
	zones       []string
	likes       *LikeService[models.Like]
	elements    *ElementService
	authService *AuthService
	authLimiter *authFailureLimiter
	logger      *slog.Logger
	apiToken    string
	adminToken  string
	now         func() time.Time
}

// New creates a new server instance.
func New(addr string, backend Backend, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		addr:    addr,
		dbPath:  opts.DBPath,
		backend: backend,
		zones:   append([]string(nil), opts.SupportedZones...),
		likes: NewLikeService(backend, backend, backend, models.LikeFromEntity, LikeServiceConfig{
			SupportedZones: opts.SupportedZones,
			MaxPageSize:    opts.MaxPageSize,
			GCBatchSize:    opts.GCBatchSize,
			OrphanGrace:    opts.OrphanGrace,
			Logger:         logger.With("service", "likes"),
		}),
		elements:    NewElementService(backend, opts.SupportedZones),
		authService: NewAuthService(backend),
		authLimiter: newAuthFailureLimiter(authFailureLimit, authFailureWindow, authBlockDuration),
		logger:      logger,
		apiToken:    strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		adminToken:  strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
		now:         time.Now,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr, "supported_zones", s.zones, "auth_token", s.apiToken != "")
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}
