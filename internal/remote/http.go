package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPGateway implements Gateway against the wordvault sync server.
type HTTPGateway struct {
	baseURL  string
	client   *http.Client
	sessions *SessionHolder
	logger   *slog.Logger
}

// NewHTTPGateway creates a gateway for the server at baseURL. The
// session holder supplies the bearer token per call. If logger is nil,
// a default logger will be used.
func NewHTTPGateway(baseURL string, timeout time.Duration, sessions *SessionHolder, logger *slog.Logger) *HTTPGateway {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPGateway{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		sessions: sessions,
		logger:   logger.With(slog.String("component", "remote_gateway")),
	}
}

// Ensure HTTPGateway implements the Gateway interface
var _ Gateway = (*HTTPGateway)(nil)

// syncResponse is the body of the collection fetch endpoints.
type syncResponse struct {
	Records         []Record  `json:"records"`
	LatestUpdatedAt time.Time `json:"latest_updated_at"`
}

// FetchAll implements Gateway.FetchAll
func (g *HTTPGateway) FetchAll(ctx context.Context, collection string) ([]Record, error) {
	records, _, err := g.fetch(ctx, collection, time.Time{})
	return records, err
}

// FetchSince implements Gateway.FetchSince
func (g *HTTPGateway) FetchSince(ctx context.Context, collection string, since time.Time) ([]Record, time.Time, error) {
	return g.fetch(ctx, collection, since)
}

func (g *HTTPGateway) fetch(ctx context.Context, collection string, since time.Time) ([]Record, time.Time, error) {
	endpoint := g.baseURL + "/v1/sync/" + url.PathEscape(collection)
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}

	var body syncResponse
	if err := g.do(ctx, http.MethodGet, endpoint, nil, &body); err != nil {
		return nil, time.Time{}, err
	}
	return body.Records, body.LatestUpdatedAt, nil
}

// UpsertBatch implements Gateway.UpsertBatch
func (g *HTTPGateway) UpsertBatch(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	endpoint := g.baseURL + "/v1/sync/" + url.PathEscape(collection) + "/batch"
	payload := struct {
		Records []Record `json:"records"`
	}{Records: records}

	return g.do(ctx, http.MethodPost, endpoint, payload, nil)
}

// Delete implements Gateway.Delete
func (g *HTTPGateway) Delete(ctx context.Context, collection, key string) error {
	endpoint := g.baseURL + "/v1/sync/" + url.PathEscape(collection) + "/" + url.PathEscape(key)
	return g.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// Count implements Gateway.Count
func (g *HTTPGateway) Count(ctx context.Context, collection string) (int64, error) {
	endpoint := g.baseURL + "/v1/sync/" + url.PathEscape(collection) + "/count"

	var body struct {
		Count int64 `json:"count"`
	}
	if err := g.do(ctx, http.MethodGet, endpoint, nil, &body); err != nil {
		return 0, err
	}
	return body.Count, nil
}

// do runs one authenticated request. The session check happens before
// any network traffic, so a signed-out device fails fast and offline.
func (g *HTTPGateway) do(ctx context.Context, method, endpoint string, payload, result any) error {
	session := g.sessions.Current()
	if session == nil {
		return ErrNotAuthenticated
	}
	if session.Expired(time.Now()) {
		return fmt.Errorf("%w: token expired", ErrNotAuthenticated)
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Device-ID", session.DeviceID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Warn("failed to close response body", slog.String("error", err.Error()))
		}
	}()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// checkStatus maps response codes to gateway errors: 401 means the
// token no longer satisfies the server, 5xx is transient, other
// non-2xx codes surface the server's message.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := readErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrNotAuthenticated, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: server returned %d: %s", ErrNetwork, resp.StatusCode, msg)
	default:
		return fmt.Errorf("server rejected request with %d: %s", resp.StatusCode, msg)
	}
}

// readErrorMessage extracts the error field the server puts in JSON
// error bodies, falling back to the raw body.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no response body"
	}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
