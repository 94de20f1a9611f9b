package sequences

import (
	"errors"
	"time"
)

// ResetPolicy controls when a counter restarts from 1.
type ResetPolicy string

const (
	ResetNone    ResetPolicy = "NONE"
	ResetYearly  ResetPolicy = "YEARLY"
	ResetMonthly ResetPolicy = "MONTHLY"
)

// Counter is the per-document-type numbering row. Mutated exclusively by the
// allocator through a single conditional UPDATE.
type Counter struct {
	DocumentType   string
	Format         string
	Prefix         string
	Padding        int
	ResetPolicy    ResetPolicy
	LastSequence   int64
	LastResetYear  int
	LastResetMonth int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Allocation is the outcome of one atomic increment.
type Allocation struct {
	Sequence int64
	Format   string
	Prefix   string
	Padding  int
}

var (
	// ErrCounterNotConfigured indicates no counter row exists for the document type.
	ErrCounterNotConfigured = errors.New("sequences: counter not configured")
	// ErrSequenceContention indicates the retry budget was exhausted on write conflicts.
	ErrSequenceContention = errors.New("sequences: allocation contention, retry later")
)
