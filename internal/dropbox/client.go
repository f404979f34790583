package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultAPIBaseURL     = "https://api.dropboxapi.com"
	defaultContentBaseURL = "https://content.dropboxapi.com"
)

// AuthError indicates the client could not obtain or refresh credentials.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("dropbox authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UploadError indicates a Dropbox API call failed after authentication.
type UploadError struct {
	Op  string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("dropbox %s failed: %v", e.Op, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Config holds Dropbox app credentials and the target folder.
type Config struct {
	AppKey       string
	AppSecret    string
	RefreshToken string
	FolderPath   string
	Timeout      time.Duration
}

// Client uploads files to Dropbox over its v2 REST API. Access tokens
// are short-lived; the client exchanges the long-lived refresh token for
// one on demand and retries a call once after a refresh when Dropbox
// answers 401.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	// overridable in tests
	apiBaseURL     string
	contentBaseURL string

	mu          sync.Mutex
	accessToken string
}

// NewClient creates a Dropbox client. The client is usable even when
// credentials are absent; IsConfigured reports whether uploads can work.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.FolderPath == "" {
		cfg.FolderPath = "/PaperFlow"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		cfg:            cfg,
		http:           &http.Client{Timeout: timeout},
		logger:         logger,
		apiBaseURL:     defaultAPIBaseURL,
		contentBaseURL: defaultContentBaseURL,
	}
}

// IsConfigured reports whether all credentials needed for the OAuth
// refresh flow are present.
func (c *Client) IsConfigured() bool {
	return c.cfg.AppKey != "" && c.cfg.AppSecret != "" && c.cfg.RefreshToken != ""
}

// EnsureFolder creates the configured folder if it does not exist.
// A folder that is already there is not an error.
func (c *Client) EnsureFolder(ctx context.Context) error {
	body, _ := json.Marshal(map[string]any{
		"path":       c.cfg.FolderPath,
		"autorename": false,
	})

	resp, err := c.doAuthorized(ctx, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.apiBaseURL+"/2/files/create_folder_v2", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// Folder already exists, possibly created by a concurrent job.
		return nil
	default:
		return &UploadError{Op: "create_folder", Err: apiError(resp)}
	}
}

// UploadFile uploads a local file into the configured folder, replacing
// any existing file with the same name. Returns the Dropbox path.
func (c *Client) UploadFile(ctx context.Context, localPath, remoteName string) (string, error) {
	if remoteName == "" {
		remoteName = filepath.Base(localPath)
	}
	dropboxPath := strings.ReplaceAll(c.cfg.FolderPath+"/"+remoteName, "//", "/")

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", &UploadError{Op: "upload", Err: fmt.Errorf("local file not found: %w", err)}
	}

	arg, _ := json.Marshal(map[string]any{
		"path":       dropboxPath,
		"mode":       "overwrite",
		"autorename": false,
		"mute":       true,
	})

	resp, err := c.doAuthorized(ctx, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.contentBaseURL+"/2/files/upload", bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Dropbox-API-Arg", string(arg))
		req.Header.Set("Content-Type", "application/octet-stream")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &UploadError{Op: "upload", Err: apiError(resp)}
	}

	c.logger.Info("Uploaded file to Dropbox",
		slog.String("local_path", localPath),
		slog.String("dropbox_path", dropboxPath),
	)
	return dropboxPath, nil
}

// doAuthorized issues a request with a valid access token, refreshing
// the token and retrying once if Dropbox rejects it as expired.
func (c *Client) doAuthorized(ctx context.Context, build func(token string) (*http.Request, error)) (*http.Response, error) {
	token, err := c.token(ctx, false)
	if err != nil {
		return nil, err
	}

	req, err := build(token)
	if err != nil {
		return nil, &UploadError{Op: "request", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UploadError{Op: "request", Err: err}
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	// Access token expired mid-flight; refresh once and retry.
	c.logger.Debug("Dropbox access token rejected, refreshing")
	token, err = c.token(ctx, true)
	if err != nil {
		return nil, err
	}
	req, err = build(token)
	if err != nil {
		return nil, &UploadError{Op: "request", Err: err}
	}
	resp, err = c.http.Do(req)
	if err != nil {
		return nil, &UploadError{Op: "request", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, &AuthError{Err: fmt.Errorf("request rejected after token refresh")}
	}
	return resp, nil
}

// token returns a cached access token, exchanging the refresh token for
// a new one when the cache is empty or force is set.
func (c *Client) token(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && !force {
		return c.accessToken, nil
	}
	if !c.IsConfigured() {
		return "", &AuthError{Err: fmt.Errorf("refresh token credentials not configured")}
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.cfg.RefreshToken},
		"client_id":     {c.cfg.AppKey},
		"client_secret": {c.cfg.AppSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBaseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Err: apiError(resp)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &AuthError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if payload.AccessToken == "" {
		return "", &AuthError{Err: fmt.Errorf("token response missing access_token")}
	}

	c.accessToken = payload.AccessToken
	c.logger.Debug("Dropbox access token refreshed",
		slog.Int("expires_in", payload.ExpiresIn),
	)
	return c.accessToken, nil
}

func apiError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
