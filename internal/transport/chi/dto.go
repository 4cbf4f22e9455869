package chi

import (
	"time"

	dommatch "github.com/hireloop/matchdex/internal/domain/match"
	domrec "github.com/hireloop/matchdex/internal/domain/record"
	matchuc "github.com/hireloop/matchdex/internal/usecase/match"
)

type errorCode string

const (
	codeBadRequest     errorCode = "bad_request"
	codeUnauthorized   errorCode = "unauthorized"
	codeAccessDenied   errorCode = "access_denied"
	codeNotFound       errorCode = "not_found"
	codeSourceDown     errorCode = "document_source_unavailable"
	codeEmbeddingError errorCode = "embedding_provider_error"
	codeInternalError  errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type indexAcceptedResponse struct {
	DocumentID   string `json:"documentId"`
	DocumentType string `json:"documentType"`
	Status       string `json:"status"`
}

type recordResponse struct {
	DocumentID    string     `json:"documentId"`
	DocumentType  string     `json:"documentType"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retryCount"`
	CanRetry      bool       `json:"canRetry"`
	LastIndexedAt *time.Time `json:"lastIndexedAt,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
}

func recordToDTO(rec *domrec.Record) recordResponse {
	return recordResponse{
		DocumentID:    rec.DocumentID(),
		DocumentType:  string(rec.DocumentType()),
		Status:        string(rec.Status()),
		RetryCount:    rec.RetryCount(),
		CanRetry:      rec.CanRetry(),
		LastIndexedAt: rec.LastIndexedAt(),
		ErrorMessage:  rec.ErrorMessage(),
	}
}

type matchResult struct {
	ID            string   `json:"id"`
	Score         float64  `json:"score"`
	ScorePercent  int      `json:"scorePercent"`
	MatchedSkills []string `json:"matchedSkills,omitempty"`
}

type matchResponse struct {
	Total          int           `json:"total"`
	Page           int           `json:"page"`
	PageSize       int           `json:"pageSize"`
	EmbeddingReady bool          `json:"embeddingReady"`
	Results        []matchResult `json:"results"`
}

func matchToDTO(resp *matchuc.Response) matchResponse {
	results := make([]matchResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = resultToDTO(r)
	}
	return matchResponse{
		Total:          resp.Total,
		Page:           resp.Page,
		PageSize:       resp.PageSize,
		EmbeddingReady: resp.EmbeddingReady,
		Results:        results,
	}
}

func resultToDTO(r dommatch.Result) matchResult {
	return matchResult{
		ID:            r.ID,
		Score:         r.Score,
		ScorePercent:  r.ScorePercent,
		MatchedSkills: r.MatchedSkills,
	}
}
