// Package docsource fetches current job and candidate data from the
// collaborating services that own the business entities.
package docsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hireloop/matchdex/internal/domain"
)

// Config holds the base URLs of the owning services.
type Config struct {
	JobsBaseURL     string
	ProfilesBaseURL string
	APIKey          string
	Timeout         time.Duration
}

// Client is an HTTP document source over the jobs and profiles services.
type Client struct {
	jobsBase     string
	profilesBase string
	apiKey       string
	http         *http.Client
}

// New creates a document source client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		jobsBase:     cfg.JobsBaseURL,
		profilesBase: cfg.ProfilesBaseURL,
		apiKey:       cfg.APIKey,
		http:         &http.Client{Timeout: timeout},
	}
}

type jobDTO struct {
	ID                 string    `json:"id"`
	EmployerID         string    `json:"employerId"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Requirements       string    `json:"requirements"`
	Skills             []string  `json:"skills"`
	ServiceNowVersions []string  `json:"serviceNowVersions"`
	WorkMode           string    `json:"workMode"`
	ExperienceLevel    string    `json:"experienceLevel"`
	JobType            string    `json:"jobType"`
	SalaryMin          int       `json:"salaryMin"`
	SalaryMax          int       `json:"salaryMax"`
	IsActive           bool      `json:"isActive"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type candidateDTO struct {
	UserID          string    `json:"userId"`
	Headline        string    `json:"headline"`
	Bio             string    `json:"bio"`
	Skills          []string  `json:"skills"`
	Certifications  []string  `json:"certifications"`
	ExperienceLevel string    `json:"experienceLevel"`
	Availability    string    `json:"availability"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// GetJob returns the current job data by id. Missing jobs map to
// domain.ErrNotFound; transport and 5xx failures to ErrDocumentSourceUnavailable.
func (c *Client) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var dto jobDTO
	if err := c.getJSON(ctx, c.jobsBase+"/internal/jobs/"+url.PathEscape(jobID), &dto); err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return &domain.Job{
		ID:                 dto.ID,
		EmployerID:         dto.EmployerID,
		Title:              dto.Title,
		Description:        dto.Description,
		Requirements:       dto.Requirements,
		Skills:             dto.Skills,
		ServiceNowVersions: dto.ServiceNowVersions,
		WorkMode:           dto.WorkMode,
		ExperienceLevel:    dto.ExperienceLevel,
		JobType:            dto.JobType,
		SalaryMin:          dto.SalaryMin,
		SalaryMax:          dto.SalaryMax,
		IsActive:           dto.IsActive,
		UpdatedAt:          dto.UpdatedAt,
	}, nil
}

// GetCandidate returns the current candidate profile data by user id.
func (c *Client) GetCandidate(ctx context.Context, userID string) (*domain.Candidate, error) {
	var dto candidateDTO
	if err := c.getJSON(ctx, c.profilesBase+"/internal/profiles/"+url.PathEscape(userID), &dto); err != nil {
		return nil, fmt.Errorf("get candidate %s: %w", userID, err)
	}
	return &domain.Candidate{
		UserID:          dto.UserID,
		Headline:        dto.Headline,
		Bio:             dto.Bio,
		Skills:          dto.Skills,
		Certifications:  dto.Certifications,
		ExperienceLevel: dto.ExperienceLevel,
		Availability:    dto.Availability,
		UpdatedAt:       dto.UpdatedAt,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDocumentSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", domain.ErrDocumentSourceUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
