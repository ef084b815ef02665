// Package structure gives read-only access to how a quiz's questions are
// arranged over pages. The attempt lifecycle uses it to validate page
// numbers and sequence-of-access; it never mutates the structure.
package structure

import "github.com/openquiz/quizgate/internal/model"

// Layout is an immutable snapshot of one quiz's slot arrangement.
type Layout struct {
	slots []model.Slot
	pages int
}

// NewLayout builds a layout from slots ordered by slot number. Pages are
// 0-based; a quiz with no slots still has one (empty) page.
func NewLayout(slots []model.Slot) *Layout {
	pages := 1
	for _, s := range slots {
		if s.Page+1 > pages {
			pages = s.Page + 1
		}
	}
	return &Layout{slots: slots, pages: pages}
}

// PageCount returns how many pages the quiz has.
func (l *Layout) PageCount() int { return l.pages }

// ValidPage reports whether page is within bounds.
func (l *Layout) ValidPage(page int) bool { return page >= 0 && page < l.pages }

// SlotsOnPage returns the slots placed on one page, in slot order.
func (l *Layout) SlotsOnPage(page int) []model.Slot {
	var out []model.Slot
	for _, s := range l.slots {
		if s.Page == page {
			out = append(out, s)
		}
	}
	return out
}

// IsRealQuestion reports whether the numbered slot carries marks.
func (l *Layout) IsRealQuestion(slotNumber int) bool {
	for _, s := range l.slots {
		if s.SlotNumber == slotNumber {
			return s.Real
		}
	}
	return false
}

// MaxMarkTotal sums the maximum marks of all real slots.
func (l *Layout) MaxMarkTotal() float64 {
	total := 0.0
	for _, s := range l.slots {
		if s.Real {
			total += s.MaxMark
		}
	}
	return total
}
