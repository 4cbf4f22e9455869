// Package sdk is a small HTTP client for the matchdex API, used by the
// collaborating services to request indexing and read matches.
package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Sentinel errors mirrored from the API's error codes.
var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("sdk: not found")
	// ErrAccessDenied is returned for 403 responses.
	ErrAccessDenied = errors.New("sdk: access denied")
	// ErrUnauthorized is returned for 401 responses.
	ErrUnauthorized = errors.New("sdk: unauthorized")
)

// APIError is a non-2xx response that does not map to a sentinel.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sdk: api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// Client talks to a matchdex server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client for the given base URL and API key.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IndexAccepted is the response to an indexing request.
type IndexAccepted struct {
	DocumentID   string `json:"documentId"`
	DocumentType string `json:"documentType"`
	Status       string `json:"status"`
}

// Record is an embedding record's current state, for polling.
type Record struct {
	DocumentID    string     `json:"documentId"`
	DocumentType  string     `json:"documentType"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retryCount"`
	CanRetry      bool       `json:"canRetry"`
	LastIndexedAt *time.Time `json:"lastIndexedAt,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
}

// MatchResult is one scored counterpart.
type MatchResult struct {
	ID            string   `json:"id"`
	Score         float64  `json:"score"`
	ScorePercent  int      `json:"scorePercent"`
	MatchedSkills []string `json:"matchedSkills,omitempty"`
}

// MatchPage is a page of ranked results.
type MatchPage struct {
	Total          int           `json:"total"`
	Page           int           `json:"page"`
	PageSize       int           `json:"pageSize"`
	EmbeddingReady bool          `json:"embeddingReady"`
	Results        []MatchResult `json:"results"`
}

// IndexProfile asks the server to (re-)index the caller's candidate profile.
func (c *Client) IndexProfile(ctx context.Context) (*IndexAccepted, error) {
	var out IndexAccepted
	if err := c.do(ctx, http.MethodPost, "/api/v1/index/profile", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IndexJob asks the server to (re-)index a job posting.
func (c *Client) IndexJob(ctx context.Context, jobID string) (*IndexAccepted, error) {
	var out IndexAccepted
	if err := c.do(ctx, http.MethodPost, "/api/v1/index/jobs/"+url.PathEscape(jobID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IndexStatus polls an embedding record.
func (c *Client) IndexStatus(ctx context.Context, documentType, documentID string) (*Record, error) {
	path := "/api/v1/index/" + url.PathEscape(documentType) + "/" + url.PathEscape(documentID)
	var out Record
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobMatches returns the caller's ranked job matches.
func (c *Client) JobMatches(ctx context.Context, page, pageSize int) (*MatchPage, error) {
	var out MatchPage
	if err := c.do(ctx, http.MethodGet, "/api/v1/matches/jobs"+pageQuery(page, pageSize), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CandidateMatches returns ranked candidates for one of the caller's jobs.
func (c *Client) CandidateMatches(ctx context.Context, jobID string, page, pageSize int) (*MatchPage, error) {
	path := "/api/v1/matches/jobs/" + url.PathEscape(jobID) + "/candidates" + pageQuery(page, pageSize)
	var out MatchPage
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pageQuery(page, pageSize int) string {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("sdk: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sdk: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("sdk: decode response: %w", err)
		}
		return nil
	}

	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, ErrAccessDenied)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	return &APIError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
}
