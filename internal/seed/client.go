package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client wraps http.Client for the scoring API.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// StatusError is returned when the service answers with an unexpected status.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type header struct{ key, value string }

func evaluatorHeader(id int64) header {
	return header{"X-Evaluator-ID", strconv.FormatInt(id, 10)}
}

// do sends body as JSON and decodes the response into out when want matches.
func (c *Client) do(ctx context.Context, method, path string, body, out any, want int, headers ...header) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		req.Header.Set(h.key, h.value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode != want {
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decode: %w", method, path, err)
		}
	}
	return nil
}

// Health checks that the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

func (c *Client) createEvent(ctx context.Context, name string) (int64, error) {
	var out idResponse
	err := c.do(ctx, http.MethodPost, "/events", map[string]any{"name": name}, &out, http.StatusCreated)
	return out.ID, err
}

func (c *Client) enroll(ctx context.Context, eventID, evaluatorID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/events/%d/evaluators", eventID),
		map[string]any{"evaluator_id": evaluatorID}, nil, http.StatusCreated)
}

func (c *Client) approveEnrollment(ctx context.Context, eventID, evaluatorID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/events/%d/evaluators/%d/status", eventID, evaluatorID),
		map[string]any{"status": "Approved"}, nil, http.StatusNoContent)
}

func (c *Client) addCriterion(ctx context.Context, eventID, evaluatorID int64, description string, weight float64) (criterion, error) {
	var out criterion
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/events/%d/criteria", eventID),
		map[string]any{"description": description, "weight": weight}, &out, http.StatusCreated,
		evaluatorHeader(evaluatorID))
	return out, err
}

func (c *Client) register(ctx context.Context, eventID, participantID int64) (int64, error) {
	var out idResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/events/%d/participations", eventID),
		map[string]any{"participant_id": participantID}, &out, http.StatusCreated)
	return out.ID, err
}

func (c *Client) setStatus(ctx context.Context, s subject, status string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("%s%d/status", s.path(), s.ID),
		map[string]any{"status": status}, nil, http.StatusNoContent)
}

func (c *Client) createProject(ctx context.Context, eventID int64, name string) (int64, error) {
	var out idResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/events/%d/projects", eventID),
		map[string]any{"name": name}, &out, http.StatusCreated)
	return out.ID, err
}

func (c *Client) assign(ctx context.Context, projectID, participationID int64, leader bool) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%d/members", projectID),
		map[string]any{"participation_id": participationID, "leader": leader}, nil, http.StatusNoContent)
}

func (c *Client) rate(ctx context.Context, b batch) (rateResponse, error) {
	var out rateResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s%d/ratings", b.Subject.path(), b.Subject.ID),
		map[string]any{"ratings": b.Ratings}, &out, http.StatusOK,
		evaluatorHeader(b.Evaluator), header{"Idempotency-Key", b.Key})
	return out, err
}

func (c *Client) ranking(ctx context.Context, eventID int64) (rankingResponse, error) {
	var out rankingResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d/ranking", eventID), nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) position(ctx context.Context, eventID, participationID int64) (positionResponse, error) {
	var out positionResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d/rank/%d", eventID, participationID), nil, &out, http.StatusOK)
	return out, err
}
