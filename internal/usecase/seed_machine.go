package usecase

import (
	"fmt"
	"time"

	"github.com/recipepanel/foodsync/internal/domain"
)

// StepResult is what one unit of seeding work produced
type StepResult struct {
	Items      int
	Upserted   int
	TotalPages int
	Err        error
}

// NextCursor moves to the next page of the same term, or to page 1 of the next term
// once the term is exhausted (past the last page, or an empty page).
func NextCursor(cursor domain.SeedCursor, totalPages, items int) domain.SeedCursor {
	if items == 0 || cursor.Page+1 > totalPages {
		return domain.SeedCursor{TermIndex: cursor.TermIndex + 1, Page: 1}
	}
	return domain.SeedCursor{TermIndex: cursor.TermIndex, Page: cursor.Page + 1}
}

// AdvanceSeedRun applies the outcome of one step to a run. A failed step keeps the
// cursor so the same unit is retried on the next call.
func AdvanceSeedRun(run domain.SeedRun, res StepResult, now time.Time) domain.SeedRun {
	next := run
	next.UpdatedAt = now
	term := run.CurrentTerm()

	if res.Err != nil {
		next.ErrorCount++
		next.Status = domain.SeedStatusError
		next.Logs = appendSeedLog(run.Logs, domain.SeedLogEntry{
			At:      now,
			Level:   "error",
			Term:    term,
			Message: fmt.Sprintf("page %d: %v", run.Cursor.Page, res.Err),
		})
		return next
	}

	next.ProcessedCount += res.Items
	next.UpsertedCount += res.Upserted
	next.Cursor = NextCursor(run.Cursor, res.TotalPages, res.Items)
	next.Logs = appendSeedLog(run.Logs, domain.SeedLogEntry{
		At:      now,
		Level:   "info",
		Term:    term,
		Message: fmt.Sprintf("page %d/%d: %d items, %d upserted", run.Cursor.Page, res.TotalPages, res.Items, res.Upserted),
	})

	if next.Exhausted() {
		next.Status = domain.SeedStatusDone
	} else {
		next.Status = domain.SeedStatusRunning
	}
	return next
}

// CompleteSeedRun marks an exhausted run done. Calling it on a done run only moves updated_at.
func CompleteSeedRun(run domain.SeedRun, now time.Time) domain.SeedRun {
	next := run
	next.UpdatedAt = now
	if run.Status != domain.SeedStatusDone {
		next.Status = domain.SeedStatusDone
		next.Logs = appendSeedLog(run.Logs, domain.SeedLogEntry{
			At:      now,
			Level:   "info",
			Message: "all terms processed",
		})
	}
	return next
}

// appendSeedLog returns a new slice holding at most the last SeedLogLimit entries
func appendSeedLog(logs []domain.SeedLogEntry, entry domain.SeedLogEntry) []domain.SeedLogEntry {
	start := 0
	if len(logs)+1 > domain.SeedLogLimit {
		start = len(logs) + 1 - domain.SeedLogLimit
	}
	out := make([]domain.SeedLogEntry, 0, len(logs)-start+1)
	out = append(out, logs[start:]...)
	return append(out, entry)
}
