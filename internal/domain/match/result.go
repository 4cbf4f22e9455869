package match

import (
	"math"
	"strings"
)

// Result is a single scored match. Ephemeral: produced per query, never persisted.
type Result struct {
	ID            string
	Score         float64
	ScorePercent  int
	MatchedSkills []string
}

// ScorePercent maps a raw similarity score onto [0, 100].
func ScorePercent(raw float64) int {
	p := int(math.Round(raw * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// MatchedSkills returns the intersection of two skill lists by exact
// case-insensitive string match, preserving the job-side order and casing.
func MatchedSkills(jobSkills, candidateSkills []string) []string {
	if len(jobSkills) == 0 || len(candidateSkills) == 0 {
		return nil
	}
	have := make(map[string]struct{}, len(candidateSkills))
	for _, s := range candidateSkills {
		have[strings.ToLower(s)] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{}, len(jobSkills))
	for _, s := range jobSkills {
		k := strings.ToLower(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := have[k]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Page slices a ranked list for 1-based pagination. Returns an empty slice
// when the page starts past the end.
func Page(results []Result, page, pageSize int) []Result {
	start := (page - 1) * pageSize
	if start >= len(results) {
		return nil
	}
	end := start + pageSize
	if end > len(results) {
		end = len(results)
	}
	return results[start:end]
}
