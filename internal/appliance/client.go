// Package appliance is the JSON REST client for the storage-management
// appliance. It only issues creation calls; resource lifecycle stays with the
// appliance.
package appliance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stordesk.org/internal/obs"
)

const (
	datasetsPath = "/api/v2.0/pool/dataset"
	usersPath    = "/api/v2.0/user"
	aclPath      = "/api/v2.0/filesystem/setacl"
)

// StatusError is a non-2xx response from the appliance. The remote status and
// body travel with the error so callers can surface them for diagnosis.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("appliance returned %d: %s", e.Status, e.Body)
}

// IsMissingParent reports whether the appliance rejected a dataset creation
// because the parent dataset has not been set up.
func IsMissingParent(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return strings.Contains(strings.ToLower(se.Body), "does not exist")
}

// Client talks to one appliance with bearer-token authentication.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client. A nil httpClient gets a client with transport
// defaults and no request timeout; a hung appliance call therefore blocks
// the request that issued it.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// CreateDataset creates a quota-bound dataset.
func (c *Client) CreateDataset(ctx context.Context, spec DatasetSpec) error {
	return c.post(ctx, datasetsPath, spec, spec)
}

// CreateUser creates an OS-level account. The password is sent on the wire
// but excluded from payload logging.
func (c *Client) CreateUser(ctx context.Context, spec UserSpec) error {
	return c.post(ctx, usersPath, spec, spec.forLog())
}

// SetACL applies an access-control list to a filesystem path.
func (c *Client) SetACL(ctx context.Context, spec ACLSpec) error {
	return c.post(ctx, aclPath, spec, spec)
}

// post sends one JSON call. payload goes on the wire; logPayload is what the
// request log sees.
func (c *Client) post(ctx context.Context, path string, payload, logPayload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}

	obs.LogRequest(map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"level":   "debug",
		"msg":     "appliance call",
		"method":  http.MethodPost,
		"target":  c.baseURL + path,
		"payload": logPayload,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	obs.LogRequest(map[string]any{
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		"level":  "debug",
		"msg":    "appliance response",
		"target": c.baseURL + path,
		"status": resp.StatusCode,
		"body":   string(raw),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	// Success bodies are informational only. Empty and non-JSON bodies are
	// tolerated; the call already succeeded.
	if len(bytes.TrimSpace(raw)) > 0 {
		var decoded any
		_ = json.Unmarshal(raw, &decoded)
	}
	return nil
}
