package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further worker-driven
// transition.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// FailureKind classifies why an item failed.
type FailureKind string

const (
	FailurePayloadUnavailable FailureKind = "payload_unavailable"
	FailureAdapterError       FailureKind = "adapter_error"
	FailureTimeout            FailureKind = "timeout"
)

// FailureReason pairs a failure classification with human-readable detail.
type FailureReason struct {
	Kind   FailureKind
	Detail string
}

func (r FailureReason) String() string {
	detail := strings.TrimSpace(r.Detail)
	if detail == "" {
		return string(r.Kind)
	}
	return detail
}

// Result holds the outcome of a successful classification.
type Result struct {
	Label            string
	Confidence       float64
	Scores           map[string]float64
	ModelVersion     string
	ProcessingTimeMs int64
}

// Validate checks the result against the contract the store enforces on
// commit: a non-empty label, confidence in [0,1], and every per-class
// score in [0,1]. Scores need not sum to one.
func (r Result) Validate() error {
	if strings.TrimSpace(r.Label) == "" {
		return fmt.Errorf("result label is empty")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", r.Confidence)
	}
	for class, score := range r.Scores {
		if score < 0 || score > 1 {
			return fmt.Errorf("score %v for class %q outside [0,1]", score, class)
		}
	}
	return nil
}

// Item represents a work item persisted in SQLite.
//
// Result is set if and only if Status is done; FailureReason is set if
// and only if Status is failed. ClaimToken is non-empty only while a
// worker holds the item in processing.
type Item struct {
	ID            string
	OwnerRef      string
	PayloadRef    string
	Status        Status
	Result        *Result
	FailureReason *FailureReason
	ClaimToken    string
	Attempts      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsProcessing reports whether the item is currently claimed.
func (i Item) IsProcessing() bool {
	return i.Status == StatusProcessing
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Done       int
	Failed     int
}
