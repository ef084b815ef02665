package questionusage

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openquiz/quizgate/internal/model"
)

// MemoryEngine is an in-process Engine for tests. Marks are produced by the
// optional Marker exactly as in the gorm engine.
type MemoryEngine struct {
	mu     sync.Mutex
	marker Marker
	usages map[string]*memUsage
}

type memUsage struct {
	quizID    uint
	slots     map[int]model.Slot
	data      map[int]string
	marks     map[int]*float64
	finalized bool
}

func NewMemoryEngine(marker Marker) *MemoryEngine {
	return &MemoryEngine{marker: marker, usages: map[string]*memUsage{}}
}

func (e *MemoryEngine) CreateUsage(quizID uint, slots []model.Slot) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u := &memUsage{
		quizID: quizID,
		slots:  make(map[int]model.Slot, len(slots)),
		data:   map[int]string{},
		marks:  map[int]*float64{},
	}
	for _, s := range slots {
		u.slots[s.SlotNumber] = s
	}
	ref := uuid.NewString()
	e.usages[ref] = u
	return ref, nil
}

func (e *MemoryEngine) RecordResponses(usageRef string, page int, responses map[int]string, _ time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.usages[usageRef]
	if !ok {
		return ErrUsageNotFound
	}
	if u.finalized {
		return ErrUsageFinalized
	}
	for slotNumber, data := range responses {
		slot, known := u.slots[slotNumber]
		if !known {
			continue
		}
		if page != PageAll && slot.Page != page {
			continue
		}
		u.data[slotNumber] = data
		if e.marker != nil && slot.Real {
			u.marks[slotNumber] = e.marker(slot, data)
		}
	}
	return nil
}

func (e *MemoryEngine) Finalize(usageRef string, _ time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.usages[usageRef]
	if !ok {
		return ErrUsageNotFound
	}
	u.finalized = true
	return nil
}

func (e *MemoryEngine) SumMarks(usageRef string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.usages[usageRef]
	if !ok {
		return 0, ErrUsageNotFound
	}
	sum := 0.0
	for _, m := range u.marks {
		if m != nil {
			sum += *m
		}
	}
	return sum, nil
}

func (e *MemoryEngine) HasAnyGradedResponse(usageRef string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.usages[usageRef]
	if !ok {
		return false, ErrUsageNotFound
	}
	for _, m := range u.marks {
		if m != nil {
			return true, nil
		}
	}
	return false, nil
}
