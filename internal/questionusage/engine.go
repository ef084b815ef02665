// Package questionusage is the collaborator owning per-question response
// state and marking. The attempt lifecycle references a usage by its opaque
// ref and never looks inside it.
package questionusage

import (
	"time"

	"github.com/openquiz/quizgate/internal/model"
)

// PageAll records responses regardless of which page they belong to.
const PageAll = -1

// Engine is the contract the attempt lifecycle consumes. One usage belongs
// to exactly one attempt and is never shared.
type Engine interface {
	// CreateUsage allocates a fresh usage for a quiz's slots and returns its
	// opaque reference.
	CreateUsage(quizID uint, slots []model.Slot) (string, error)
	// RecordResponses stores response data per slot for one page (or PageAll),
	// stamping them with now. Recording against a finalized usage fails.
	RecordResponses(usageRef string, page int, responses map[int]string, now time.Time) error
	// Finalize stops the usage accepting further responses and settles marks.
	Finalize(usageRef string, now time.Time) error
	// SumMarks totals the per-question marks awarded so far.
	SumMarks(usageRef string) (float64, error)
	// HasAnyGradedResponse reports whether at least one response has a mark.
	HasAnyGradedResponse(usageRef string) (bool, error)
}
