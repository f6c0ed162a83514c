package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/studioxv/booking-platform/pkg/logging"
)

const loginBaseURL = "https://login.microsoftonline.com"

// tokenRefreshMargin renews tokens a little before Graph expires them so an
// in-flight request never carries a token about to lapse.
const tokenRefreshMargin = 2 * time.Minute

// Credentials holds the app registration used for the client credentials flow.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

func (c Credentials) complete() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// TokenCache acquires and caches Microsoft Graph access tokens via the
// client credentials grant. Safe for concurrent use.
type TokenCache struct {
	creds      Credentials
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenCache returns nil when the credentials are incomplete so callers
// can fall back to stub senders in development.
func NewTokenCache(creds Credentials, logger *logging.Logger) *TokenCache {
	if !creds.complete() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TokenCache{
		creds:      creds,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    loginBaseURL,
		logger:     logger,
	}
}

// WithBaseURL overrides the login endpoint, for tests.
func (t *TokenCache) WithBaseURL(base string) *TokenCache {
	t.baseURL = base
	return t
}

// AccessToken returns a cached token or fetches a fresh one.
func (t *TokenCache) AccessToken(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiresAt) {
		return t.token, nil
	}

	form := url.Values{
		"client_id":     {t.creds.ClientID},
		"client_secret": {t.creds.ClientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
		"grant_type":    {"client_credentials"},
	}
	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", t.baseURL, url.PathEscape(t.creds.TenantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("calendar: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calendar: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("calendar: token request returned status %d: %s", resp.StatusCode, detail)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("calendar: decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("calendar: token response missing access_token")
	}

	t.token = body.AccessToken
	t.expiresAt = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - tokenRefreshMargin)
	t.logger.Debug("graph token acquired", "expires_in", body.ExpiresIn)
	return t.token, nil
}
