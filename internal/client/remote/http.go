package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"

	"github.com/medkeep/medkeep/internal/client/models"
	"github.com/medkeep/medkeep/internal/common"
)

// HTTPClient talks JSON over HTTP to the backend. Reads are retried with a
// short fibonacci backoff on transient failures; writes are attempted once,
// the outbox retry counter covers them across sync attempts.
type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	accessToken string
}

// NewHTTPClient builds a client for the given base URL. A nil httpClient
// falls back to a default with sane connection limits.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
			},
		}
	}
	return &HTTPClient{baseURL: baseURL, httpClient: httpClient}
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// userIDFromToken extracts the account id from the access token's subject
// claim. The signature is the server's concern; the client only needs the
// identity to partition its scope.
func userIDFromToken(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

func (c *HTTPClient) SignIn(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}

	var resp struct {
		AccessToken string `json:"access_token"`
		UserID      string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/token", body, &resp); err != nil {
		return Session{}, err
	}

	userID := userIDFromToken(resp.AccessToken)
	if userID == "" {
		userID = resp.UserID
	}
	if userID == "" {
		return Session{}, fmt.Errorf("sign in: token carries no subject: %w", common.ErrUnauthorized)
	}

	c.accessToken = resp.AccessToken
	return Session{AccessToken: resp.AccessToken, UserID: userID}, nil
}

func (c *HTTPClient) SignOut(ctx context.Context) error {
	if c.accessToken == "" {
		return nil
	}
	// Best effort: the session dies locally regardless.
	_ = c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.accessToken = ""
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *HTTPClient) UpsertMedication(ctx context.Context, row models.RemoteMedicationRow) error {
	if c.accessToken == "" {
		return ErrNoSession
	}
	return c.do(ctx, http.MethodPut, "/medications/"+url.PathEscape(row.ID), row, nil)
}

func (c *HTTPClient) DeleteMedication(ctx context.Context, medicationID string, deletedAt time.Time) error {
	if c.accessToken == "" {
		return ErrNoSession
	}
	body := map[string]string{"deleted_at": deletedAt.UTC().Format(time.RFC3339Nano)}
	return c.do(ctx, http.MethodPatch, "/medications/"+url.PathEscape(medicationID), body, nil)
}

func (c *HTTPClient) InsertLog(ctx context.Context, row models.RemoteLogRow) error {
	if c.accessToken == "" {
		return ErrNoSession
	}
	return c.do(ctx, http.MethodPost, "/logs", row, nil)
}

func (c *HTTPClient) FetchMedications(ctx context.Context, ownerID string, since *time.Time) ([]models.RemoteMedicationRow, error) {
	var rows []models.RemoteMedicationRow
	if err := c.get(ctx, "/medications", ownerID, since, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) FetchLogs(ctx context.Context, ownerID string, since *time.Time) ([]models.RemoteLogRow, error) {
	var rows []models.RemoteLogRow
	if err := c.get(ctx, "/logs", ownerID, since, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// get performs a read with bounded retries on transient failures.
func (c *HTTPClient) get(ctx context.Context, path, ownerID string, since *time.Time, out any) error {
	if c.accessToken == "" {
		return ErrNoSession
	}

	q := url.Values{}
	q.Set("owner_id", ownerID)
	if since != nil {
		q.Set("updated_since", since.UTC().Format(time.RFC3339Nano))
	}

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil, out)
		if errors.Is(err, ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// do runs one request/response cycle and maps failures onto the shared
// error taxonomy.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", method, path, common.ErrUnauthorized)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, ErrUnavailable)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
		}
	}
	return nil
}
