package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"kudos/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "KUDOS_HTTP_TIMEOUT"
	apiTokenEnvKey     = "KUDOS_API_TOKEN"
	adminTokenEnvKey   = "KUDOS_ADMIN_TOKEN"
	userEnvKey         = "KUDOS_USER"
	usernameEnvKey     = "KUDOS_USERNAME"
	passwordEnvKey     = "KUDOS_PASSWORD"

	// UserHeader names the requesting user for bearer and open-mode requests.
	UserHeader = "X-Kudos-User"
	// AdminTokenHeader carries the admin token for /v1/admin routes.
	AdminTokenHeader = "X-Admin-Token"
)

// Client is a simple HTTP client for the kudos API.
type Client struct {
	baseURL    string
	http       *http.Client
	authToken  string
	adminToken string
	user       string
	username   string
	password   string
}

// NewClient creates a new API client configured from the environment.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken:  strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
		user:       strings.TrimSpace(os.Getenv(userEnvKey)),
		username:   strings.TrimSpace(os.Getenv(usernameEnvKey)),
		password:   os.Getenv(passwordEnvKey),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateElement(ctx context.Context, req ElementCreateRequest) (ElementResponse, error) {
	var resp ElementResponse
	err := c.do(ctx, http.MethodPost, "/v1/elements", nil, req, &resp)
	return resp, err
}

func (c *Client) GetElement(ctx context.Context, guid string, query url.Values) (ElementResponse, error) {
	var resp ElementResponse
	err := c.do(ctx, http.MethodGet, elementPath(guid), query, nil, &resp)
	return resp, err
}

func (c *Client) ListElements(ctx context.Context, query url.Values) ([]ElementResponse, error) {
	var resp []ElementResponse
	err := c.do(ctx, http.MethodGet, "/v1/elements", query, nil, &resp)
	return resp, err
}

func (c *Client) DeleteElement(ctx context.Context, guid string, cascade bool) (ElementDeleteResponse, error) {
	var resp ElementDeleteResponse
	query := url.Values{}
	if cascade {
		query.Set("cascade", "true")
	}
	err := c.do(ctx, http.MethodDelete, elementPath(guid), query, nil, &resp)
	return resp, err
}

func (c *Client) RetireElement(ctx context.Context, guid string) (ElementResponse, error) {
	var resp ElementResponse
	err := c.do(ctx, http.MethodPost, elementPath(guid)+"/retire", nil, struct{}{}, &resp)
	return resp, err
}

func (c *Client) MarkDuplicate(ctx context.Context, guid string, req ElementDuplicateRequest) (ElementResponse, error) {
	var resp ElementResponse
	err := c.do(ctx, http.MethodPost, elementPath(guid)+"/duplicate", nil, req, &resp)
	return resp, err
}

func (c *Client) ListLikes(ctx context.Context, guid string, query url.Values) ([]models.Like, error) {
	var resp []models.Like
	err := c.do(ctx, http.MethodGet, elementPath(guid)+"/likes", query, nil, &resp)
	return resp, err
}

func (c *Client) SaveLike(ctx context.Context, guid string, req LikeSaveRequest) (LikeSaveResponse, error) {
	var resp LikeSaveResponse
	err := c.do(ctx, http.MethodPost, elementPath(guid)+"/likes", nil, req, &resp)
	return resp, err
}

func (c *Client) RemoveLike(ctx context.Context, guid string, query url.Values) (LikeRemoveResponse, error) {
	var resp LikeRemoveResponse
	err := c.do(ctx, http.MethodDelete, elementPath(guid)+"/likes", query, nil, &resp)
	return resp, err
}

func (c *Client) GCLikes(ctx context.Context, req LikeGCRequest) (LikeGCResponse, error) {
	var resp LikeGCResponse
	headers := http.Header{}
	if req.Apply {
		headers.Set("X-Confirm", "true")
	}
	err := c.doWithHeaders(ctx, http.MethodPost, "/v1/admin/gc/likes", nil, req, &resp, headers)
	return resp, err
}

func (c *Client) AdminCreateUser(ctx context.Context, req AdminUserCreateRequest) (AdminUser, error) {
	var resp AdminUser
	err := c.do(ctx, http.MethodPost, "/v1/admin/users", nil, req, &resp)
	return resp, err
}

func (c *Client) AdminListUsers(ctx context.Context) ([]AdminUser, error) {
	var resp []AdminUser
	err := c.do(ctx, http.MethodGet, "/v1/admin/users", nil, nil, &resp)
	return resp, err
}

func (c *Client) AdminSetUserDisabled(ctx context.Context, username string, disabled bool) (AdminUser, error) {
	var resp AdminUser
	err := c.do(ctx, http.MethodPatch, "/v1/admin/users/"+url.PathEscape(username), nil, AdminUserSetDisabledRequest{Disabled: disabled}, &resp)
	return resp, err
}

func (c *Client) AdminSetUserZones(ctx context.Context, username string, zones []string) (AdminUser, error) {
	var resp AdminUser
	err := c.do(ctx, http.MethodPut, "/v1/admin/users/"+url.PathEscape(username)+"/zones", nil, AdminUserSetZonesRequest{Zones: zones}, &resp)
	return resp, err
}

func (c *Client) AdminDeleteUser(ctx context.Context, username string) (AdminUserDeleteResponse, error) {
	var resp AdminUserDeleteResponse
	err := c.do(ctx, http.MethodDelete, "/v1/admin/users/"+url.PathEscape(username), nil, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	return c.doWithHeaders(ctx, method, path, query, body, out, nil)
}

func (c *Client) doWithHeaders(ctx context.Context, method, path string, query url.Values, body any, out any, headers http.Header) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	c.setAuthHeaders(req)
	if strings.HasPrefix(path, "/v1/admin/") {
		c.setAdminHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// Basic credentials win over the bearer token when both are configured.
func (c *Client) setAuthHeaders(req *http.Request) {
	if req == nil {
		return
	}
	switch {
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	case c.authToken != "":
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.user != "" {
		req.Header.Set(UserHeader, c.user)
	}
}

func (c *Client) setAdminHeader(req *http.Request) {
	if c.adminToken == "" || req == nil {
		return
	}
	req.Header.Set(AdminTokenHeader, c.adminToken)
}

func elementPath(guid string) string {
	return "/v1/elements/" + url.PathEscape(guid)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
