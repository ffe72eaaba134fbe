package services

import (
	"fmt"
	"time"

	"github.com/acp-registry/apiserver/types"
)

// IDStrategy assigns ids to new pending users. The returned id must be
// greater than every id already assigned in doc.
type IDStrategy interface {
	NextID(doc *types.Document, now time.Time) int64
}

// ClockIDs derives ids from the submission time in milliseconds, bumped past
// the last assigned id when two submissions share a millisecond.
type ClockIDs struct{}

func (ClockIDs) NextID(doc *types.Document, now time.Time) int64 {
	id := now.UnixMilli()
	if last := doc.HighestID(); id <= last {
		id = last + 1
	}
	return id
}

// CounterIDs assigns consecutive ids starting at 1.
type CounterIDs struct{}

func (CounterIDs) NextID(doc *types.Document, _ time.Time) int64 {
	return doc.HighestID() + 1
}

// ParseIDStrategy maps a config value to an IDStrategy.
func ParseIDStrategy(name string) (IDStrategy, error) {
	switch name {
	case "", "clock":
		return ClockIDs{}, nil
	case "counter":
		return CounterIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown id strategy %q", name)
	}
}
