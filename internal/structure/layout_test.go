package structure

import (
	"testing"

	"github.com/openquiz/quizgate/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestLayout_Pages(t *testing.T) {
	slots := []model.Slot{
		{SlotNumber: 1, Page: 0, MaxMark: 5, Real: true},
		{SlotNumber: 2, Page: 0, MaxMark: 3, Real: true},
		{SlotNumber: 3, Page: 2, MaxMark: 1, Real: false},
	}
	l := NewLayout(slots)

	assert.Equal(t, 3, l.PageCount())
	assert.True(t, l.ValidPage(0))
	assert.True(t, l.ValidPage(2))
	assert.False(t, l.ValidPage(3))
	assert.False(t, l.ValidPage(-1))

	assert.Len(t, l.SlotsOnPage(0), 2)
	assert.Empty(t, l.SlotsOnPage(1))
	assert.Len(t, l.SlotsOnPage(2), 1)
}

func TestLayout_EmptyQuizStillHasOnePage(t *testing.T) {
	l := NewLayout(nil)
	assert.Equal(t, 1, l.PageCount())
	assert.True(t, l.ValidPage(0))
}

func TestLayout_Marks(t *testing.T) {
	slots := []model.Slot{
		{SlotNumber: 1, Page: 0, MaxMark: 5, Real: true},
		{SlotNumber: 2, Page: 0, MaxMark: 99, Real: false}, // description slot
		{SlotNumber: 3, Page: 1, MaxMark: 3, Real: true},
	}
	l := NewLayout(slots)

	assert.True(t, l.IsRealQuestion(1))
	assert.False(t, l.IsRealQuestion(2))
	assert.False(t, l.IsRealQuestion(9))
	assert.Equal(t, 8.0, l.MaxMarkTotal())
}
