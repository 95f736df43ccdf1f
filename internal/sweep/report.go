package sweep

import "log/slog"

// Outcome is the result of one room within a sweep.
type Outcome string

// Room outcomes. The skip outcomes are listed in evaluation order.
const (
	OutcomeSkippedExcluded  Outcome = "skipped_excluded"
	OutcomeSkippedNoUnread  Outcome = "skipped_no_unread"
	OutcomeSkippedMentioned Outcome = "skipped_mentioned"
	OutcomeMarked           Outcome = "marked"
	OutcomeNoTarget         Outcome = "no_target"
	OutcomeDryRun           Outcome = "dry_run"
	OutcomeFailed           Outcome = "failed"
)

// Report summarizes a sweep. It is informational only.
type Report struct {
	Rooms            int `json:"rooms"`
	SkippedExcluded  int `json:"skipped_excluded"`
	SkippedNoUnread  int `json:"skipped_no_unread"`
	SkippedMentioned int `json:"skipped_mentioned"`
	// Processed counts rooms that passed the skip checks, whatever the result.
	Processed        int `json:"processed"`
	Marked           int `json:"marked"`
	NoTarget         int `json:"no_target"`
	DryRun           int `json:"dry_run"`
	Failed           int `json:"failed"`
}

func (r *Report) record(o Outcome) {
	switch o {
	case OutcomeSkippedExcluded:
		r.SkippedExcluded++
	case OutcomeSkippedNoUnread:
		r.SkippedNoUnread++
	case OutcomeSkippedMentioned:
		r.SkippedMentioned++
	case OutcomeMarked:
		r.Processed++
		r.Marked++
	case OutcomeNoTarget:
		r.Processed++
		r.NoTarget++
	case OutcomeDryRun:
		r.Processed++
		r.DryRun++
	case OutcomeFailed:
		r.Processed++
		r.Failed++
	}
}

// Skipped returns the number of rooms rejected before any message fetch.
func (r Report) Skipped() int {
	return r.SkippedExcluded + r.SkippedNoUnread + r.SkippedMentioned
}

// LogValue implements slog.LogValuer.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("rooms", r.Rooms),
		slog.Int("skipped_excluded", r.SkippedExcluded),
		slog.Int("skipped_no_unread", r.SkippedNoUnread),
		slog.Int("skipped_mentioned", r.SkippedMentioned),
		slog.Int("processed", r.Processed),
		slog.Int("marked", r.Marked),
		slog.Int("no_target", r.NoTarget),
		slog.Int("dry_run", r.DryRun),
		slog.Int("failed", r.Failed),
	)
}
