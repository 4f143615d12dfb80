// Package opensky fetches live aircraft state vectors from the OpenSky
// Network REST API.
package opensky

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

	"github.com/rl-enjoyer/flight-display/pkg/logger"
)

const defaultTokenURL = "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token"

// Client fetches state vectors for a bounding box. It performs no retries;
// retry policy belongs to the poll loop.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger

	// OAuth2 client-credentials auth. Both empty means anonymous access
	// (rate-limited by the upstream).
	clientID     string
	clientSecret string
	tokenURL     string

	// Cached token so every poll doesn't hit the token endpoint.
	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Options configures a Client.
type Options struct {
	BaseURL      string // defaults to https://opensky-network.org/api
	ClientID     string
	ClientSecret string
	TokenURL     string // defaults to the OpenSky realm token endpoint
	Timeout      time.Duration
}

// NewClient creates an OpenSky client.
func NewClient(opts Options, log *logger.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://opensky-network.org/api"
	}
	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       log.Named("opensky"),
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		tokenURL:     tokenURL,
	}
}

// FetchStates fetches the current state vectors inside bbox.
func (c *Client) FetchStates(ctx context.Context, bbox BoundingBox) ([]StateVector, error) {
	urlStr := fmt.Sprintf("%s/states/all?lamin=%f&lomin=%f&lamax=%f&lomax=%f",
		c.baseURL, bbox.LatMin, bbox.LonMin, bbox.LatMax, bbox.LonMax)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	if token, err := c.bearerToken(ctx); err != nil {
		// Token trouble is logged but not fatal; the states endpoint still
		// answers anonymous requests.
		c.logger.Warn("Failed to obtain OpenSky token, proceeding anonymously", logger.Error(err))
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("Fetching state vectors", logger.String("url", urlStr))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decoding.
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Kind: KindRateLimited, Status: resp.StatusCode, Err: fmt.Errorf("rate limited")}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Kind:   KindUpstream,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))),
		}
	}

	var osResp struct {
		Time   int64           `json:"time"`
		States [][]interface{} `json:"states"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&osResp); err != nil {
		return nil, &FetchError{Kind: KindUpstream, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	states := make([]StateVector, 0, len(osResp.States))
	for _, s := range osResp.States {
		states = append(states, decodeState(s))
	}

	c.logger.Debug("Fetched state vectors", logger.Int("count", len(states)))
	return states, nil
}

// decodeState extracts a StateVector from one positional state array.
// Extraction is defensive: every index is bounds- and type-checked, since the
// API mixes nulls, strings, and numbers freely.
func decodeState(s []interface{}) StateVector {
	str := func(i int) string {
		if len(s) > i {
			if v, ok := s[i].(string); ok {
				return v
			}
		}
		return ""
	}
	num := func(i int) *float64 {
		if len(s) > i {
			if v, ok := s[i].(float64); ok {
				return &v
			}
		}
		return nil
	}
	boolean := func(i int) bool {
		if len(s) > i {
			if v, ok := s[i].(bool); ok {
				return v
			}
		}
		return false
	}

	return StateVector{
		ICAO24:        strings.ToLower(str(0)),
		Callsign:      str(1),
		OriginCountry: str(2),
		Longitude:     num(5),
		Latitude:      num(6),
		BaroAltitude:  num(7),
		OnGround:      boolean(8),
		Velocity:      num(9),
		TrueTrack:     num(10),
		VerticalRate:  num(11),
		GeoAltitude:   num(13),
		Squawk:        str(14),
	}
}

// bearerToken returns a cached OAuth2 token, requesting a fresh one from the
// token endpoint when the cache is empty or expired. Returns "" when the
// client is configured for anonymous access.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", nil
	}

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokResp.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.token = tokResp.AccessToken
	if tokResp.ExpiresIn > 60 {
		// Safety margin so we never present a token mid-expiry.
		c.tokenExpiry = time.Now().Add(time.Duration(tokResp.ExpiresIn-30) * time.Second)
	} else {
		c.tokenExpiry = time.Now().Add(29 * time.Minute)
	}

	c.logger.Debug("Obtained OpenSky token", logger.Time("expires", c.tokenExpiry))
	return c.token, nil
}
