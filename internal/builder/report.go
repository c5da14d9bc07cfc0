package builder

import (
	"sort"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/errors"
)

// Outcome is the final status of a build pass.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// Entry is one per-file problem recorded during a pass.
type Entry struct {
	File     string               `json:"file"`
	Phase    State                `json:"phase"`
	Category errors.ErrorCategory `json:"category"`
	Message  string               `json:"message"`
}

// Report summarizes one build pass. It is safe to serialize for publishing.
type Report struct {
	BuildID   string        `json:"build_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Full      bool          `json:"full"`
	Commit    string        `json:"commit,omitempty"`

	Rendered int `json:"rendered"`
	Skipped  int `json:"skipped"`
	Errored  int `json:"errored"`

	Entries []Entry `json:"entries,omitempty"`
	Outcome Outcome `json:"outcome"`
}

// addError records a per-file problem and bumps the error count.
func (r *Report) addError(file string, phase State, err error) {
	r.Errored++
	r.Entries = append(r.Entries, Entry{
		File:     file,
		Phase:    phase,
		Category: errors.GetCategory(err),
		Message:  err.Error(),
	})
}

// finish computes the outcome and sorts entries for stable output.
func (r *Report) finish(failed bool) {
	sort.Slice(r.Entries, func(i, j int) bool {
		if r.Entries[i].File != r.Entries[j].File {
			return r.Entries[i].File < r.Entries[j].File
		}
		return r.Entries[i].Message < r.Entries[j].Message
	})
	switch {
	case failed:
		r.Outcome = OutcomeFailed
	case r.Errored > 0:
		r.Outcome = OutcomePartial
	default:
		r.Outcome = OutcomeSuccess
	}
}
