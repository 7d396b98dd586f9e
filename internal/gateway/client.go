// Package gateway provides the HTTP client for the CareerHelper remote API.
//
// The remote API is the system of record once a write is confirmed. From the
// client's point of view it is a black box: any transport error or non-2xx
// response collapses into a single opaque REMOTE_UNAVAILABLE failure. Create
// calls carry the locally generated key, so a retried create for an
// already-created key is satisfied by the server rather than duplicated.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jackyxhb/CareerHelper/internal/errors"
	"github.com/jackyxhb/CareerHelper/internal/models"
)

// Remote defines the remote API surface consumed by the sync coordinator.
// Constructed callers inject it explicitly; tests substitute a fake.
type Remote interface {
	ListJobs(ctx context.Context) ([]*models.Job, error)
	ListExperiences(ctx context.Context, userID string) ([]*models.Experience, error)
	ListApplications(ctx context.Context, userID string) ([]*models.Application, error)
	CreateExperience(ctx context.Context, req *ExperienceCreate) error
	CreateApplication(ctx context.Context, req *ApplicationCreate) error
	Health(ctx context.Context) error
}

// ExperienceCreate is the POST /experiences request body. The experienceId
// is assigned by the client and authoritative.
type ExperienceCreate struct {
	ExperienceID string `json:"experienceId"`
	UserID       string `json:"userId"`
	Title        string `json:"title"`
	Company      string `json:"company"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate,omitempty"`
	Description  string `json:"description,omitempty"`
}

// ApplicationCreate is the POST /applications request body.
type ApplicationCreate struct {
	ApplicationID string `json:"applicationId"`
	UserID        string `json:"userId"`
	JobID         string `json:"jobId,omitempty"`
	Status        string `json:"status"`
	AppliedAt     string `json:"appliedAt,omitempty"`
	Notes         string `json:"notes,omitempty"`
	JobTitle      string `json:"jobTitle,omitempty"`
	JobCompany    string `json:"jobCompany,omitempty"`
	JobLocation   string `json:"jobLocation,omitempty"`
	JobSource     string `json:"jobSource,omitempty"`
}

// Client talks to the CareerHelper REST API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithToken sets the bearer identity sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListJobs fetches the remote job catalog.
func (c *Client) ListJobs(ctx context.Context) ([]*models.Job, error) {
	var jobs []*models.Job
	if err := c.do(ctx, http.MethodGet, "/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListExperiences fetches the owner's experiences.
func (c *Client) ListExperiences(ctx context.Context, userID string) ([]*models.Experience, error) {
	var experiences []*models.Experience
	path := "/experiences/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &experiences); err != nil {
		return nil, err
	}
	return experiences, nil
}

// ListApplications fetches the owner's applications.
func (c *Client) ListApplications(ctx context.Context, userID string) ([]*models.Application, error) {
	var applications []*models.Application
	path := "/applications/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &applications); err != nil {
		return nil, err
	}
	return applications, nil
}

// CreateExperience replicates a locally created experience.
func (c *Client) CreateExperience(ctx context.Context, req *ExperienceCreate) error {
	return c.do(ctx, http.MethodPost, "/experiences", req, nil)
}

// CreateApplication replicates a locally created application.
func (c *Client) CreateApplication(ctx context.Context, req *ApplicationCreate) error {
	return c.do(ctx, http.MethodPost, "/applications", req, nil)
}

// Health probes the remote API. Used by the connectivity monitor.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.ErrInternal, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(errors.ErrInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrRemoteUnavailable, fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return errors.Newf(errors.ErrRemoteUnavailable, "%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(errors.ErrRemoteUnavailable, "decode response", err)
		}
	}
	return nil
}

// Ensure Client implements Remote at compile time.
var _ Remote = (*Client)(nil)
