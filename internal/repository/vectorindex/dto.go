package vectorindex

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/hireloop/matchdex/internal/domain"
)

const (
	jobKeyPrefix       = domain.KeyPrefix + "job:"
	candidateKeyPrefix = domain.KeyPrefix + "candidate:"

	jobsIndexName       = domain.KeyPrefix + "jobs:idx"
	candidatesIndexName = domain.KeyPrefix + "candidates:idx"

	fieldVector       = "__vector"
	fieldVectorScore  = "__vector_score"
	fieldEmployerID   = "employer_id"
	fieldTitle        = "title"
	fieldHeadline     = "headline"
	fieldSkills       = "skills"
	fieldCerts        = "certifications"
	fieldSnowVersions = "snow_versions"
	fieldWorkMode     = "work_mode"
	fieldExperience   = "experience_level"
	fieldJobType      = "job_type"
	fieldSalaryMin    = "salary_min"
	fieldSalaryMax    = "salary_max"
	fieldIsActive     = "is_active"
	fieldAvailability = "availability"
	fieldUpdatedAt    = "updated_at"
)

func jobKey(id string) string       { return jobKeyPrefix + id }
func candidateKey(id string) string { return candidateKeyPrefix + id }

func docKey(id string, docType domain.DocumentType) string {
	if docType == domain.TypeJob {
		return jobKey(id)
	}
	return candidateKey(id)
}

func extractID(key, prefix string) string {
	return strings.TrimPrefix(key, prefix)
}

// buildJobFields flattens a job document into hash fields for HSET.
func buildJobFields(doc *domain.JobDocument) map[string]string {
	return map[string]string{
		fieldVector:       vectorToBytes(doc.Vector),
		fieldEmployerID:   doc.EmployerID,
		fieldTitle:        doc.Title,
		fieldSkills:       joinSkills(doc.Skills),
		fieldSnowVersions: joinSkills(doc.ServiceNowVersions),
		fieldWorkMode:     doc.WorkMode,
		fieldExperience:   doc.ExperienceLevel,
		fieldJobType:      doc.JobType,
		fieldSalaryMin:    strconv.Itoa(doc.SalaryMin),
		fieldSalaryMax:    strconv.Itoa(doc.SalaryMax),
		fieldIsActive:     boolTag(doc.IsActive),
		fieldUpdatedAt:    strconv.FormatInt(doc.UpdatedAt.UnixMilli(), 10),
	}
}

// buildCandidateFields flattens a candidate document into hash fields for HSET.
func buildCandidateFields(doc *domain.CandidateDocument) map[string]string {
	return map[string]string{
		fieldVector:       vectorToBytes(doc.Vector),
		fieldHeadline:     doc.Headline,
		fieldSkills:       joinSkills(doc.Skills),
		fieldCerts:        joinSkills(doc.Certifications),
		fieldExperience:   doc.ExperienceLevel,
		fieldAvailability: doc.Availability,
		fieldUpdatedAt:    strconv.FormatInt(doc.UpdatedAt.UnixMilli(), 10),
	}
}

func boolTag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// joinSkills encodes a list as a comma-separated TAG value. Commas inside a
// skill name would split it; the source vocabulary has none.
func joinSkills(skills []string) string {
	return strings.Join(skills, ",")
}

func splitSkills(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
