package domain

import (
	"fmt"
	"time"
)

// DocumentType distinguishes the two document variants handled by the pipeline.
type DocumentType string

const (
	// TypeJob is a job posting.
	TypeJob DocumentType = "job"
	// TypeCandidateProfile is a candidate profile.
	TypeCandidateProfile DocumentType = "candidate_profile"
)

// ParseDocumentType validates a document type string.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case TypeJob, TypeCandidateProfile:
		return DocumentType(s), nil
	}
	return "", fmt.Errorf("unknown document type %q: %w", s, ErrValidation)
}

// Availability values a candidate can declare.
const (
	AvailabilityAvailable    = "available"
	AvailabilityOpen         = "open_to_offers"
	AvailabilityNotAvailable = "not_available"
)

// Job is the current job posting data as returned by the jobs service.
type Job struct {
	ID                 string
	EmployerID         string
	Title              string
	Description        string
	Requirements       string
	Skills             []string
	ServiceNowVersions []string
	WorkMode           string
	ExperienceLevel    string
	JobType            string
	SalaryMin          int
	SalaryMax          int
	IsActive           bool
	UpdatedAt          time.Time
}

// Candidate is the current candidate profile data as returned by the profiles service.
type Candidate struct {
	UserID          string
	Headline        string
	Bio             string
	Skills          []string
	Certifications  []string
	ExperienceLevel string
	Availability    string
	UpdatedAt       time.Time
}

// JobDocument is the denormalized job projection stored in the vector index.
// Built once per index operation; owned by the vector index adapter.
type JobDocument struct {
	ID                 string
	EmployerID         string
	Title              string
	Skills             []string
	ServiceNowVersions []string
	WorkMode           string
	ExperienceLevel    string
	JobType            string
	SalaryMin          int
	SalaryMax          int
	IsActive           bool
	UpdatedAt          time.Time
	Vector             []float32
}

// CandidateDocument is the denormalized candidate projection stored in the vector index.
type CandidateDocument struct {
	UserID          string
	Headline        string
	Skills          []string
	Certifications  []string
	ExperienceLevel string
	Availability    string
	UpdatedAt       time.Time
	Vector          []float32
}

// Hit is a single nearest-neighbor result: counterpart id, raw similarity
// score, and the counterpart's skills when the index carries them.
type Hit struct {
	ID     string
	Score  float64
	Skills []string
}

// Requester is the explicit identity of the caller, threaded through every
// authorized operation instead of an ambient current-user context.
type Requester struct {
	UserID string
	Admin  bool
}
