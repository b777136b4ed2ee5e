// Package service applies decoded protocol instructions to cached entities.
package service

import (
	"context"
	"errors"
	"sync/atomic"

	"bonding-curve-indexer/internal/codec"
	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/solana"
)

var (
	// ErrMissingReference is reported when an instruction refers to an
	// entity that is not known yet. Services recover with placeholders.
	ErrMissingReference = errors.New("missing reference")

	// ErrUnhandled is returned for instructions no service handles.
	ErrUnhandled = errors.New("unhandled instruction")
)

// InstructionContext carries one decoded instruction through dispatch.
type InstructionContext struct {
	Instruction *codec.Instruction
	// Raw is the undecoded instruction. Its Inner list holds the
	// instructions this one invoked, including self-CPI events.
	Raw       *solana.Instruction
	Signature string
	Slot      uint64
	Timestamp int64 // block time, Unix milliseconds
	// Sequence is the ordinal of this trade within its transaction.
	Sequence uint32
	// Defaults is shared by every instruction of the batch.
	Defaults *domain.ProtocolDefaults
}

// Processor handles one instruction kind.
type Processor interface {
	Process(ctx context.Context, ic *InstructionContext, stats *Stats) error
}

// Stats counts service outcomes for one batch. Safe for concurrent use.
type Stats struct {
	GlobalUpdates       atomic.Int64
	DefaultsChanged     atomic.Int64
	TokensCreated       atomic.Int64
	PlaceholdersCreated atomic.Int64
	CurvesSynthesized   atomic.Int64
	TradesRecorded      atomic.Int64
	TradesWithoutEvent  atomic.Int64
	TokensCompleted     atomic.Int64
	MissingReferences   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	GlobalUpdates       int64
	DefaultsChanged     int64
	TokensCreated       int64
	PlaceholdersCreated int64
	CurvesSynthesized   int64
	TradesRecorded      int64
	TradesWithoutEvent  int64
	TokensCompleted     int64
	MissingReferences   int64
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		GlobalUpdates:       s.GlobalUpdates.Load(),
		DefaultsChanged:     s.DefaultsChanged.Load(),
		TokensCreated:       s.TokensCreated.Load(),
		PlaceholdersCreated: s.PlaceholdersCreated.Load(),
		CurvesSynthesized:   s.CurvesSynthesized.Load(),
		TradesRecorded:      s.TradesRecorded.Load(),
		TradesWithoutEvent:  s.TradesWithoutEvent.Load(),
		TokensCompleted:     s.TokensCompleted.Load(),
		MissingReferences:   s.MissingReferences.Load(),
	}
}
