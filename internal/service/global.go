package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/codec"
	"bonding-curve-indexer/internal/domain"
)

// GlobalService maintains the protocol configuration singleton and the
// batch's protocol defaults.
type GlobalService struct {
	configs *cache.EntityCache[*domain.GlobalConfig]
	events  *eventSource
	log     logrus.FieldLogger
}

// Process handles initialize and setParams.
func (s *GlobalService) Process(ctx context.Context, ic *InstructionContext, stats *Stats) error {
	switch ic.Instruction.Name {
	case codec.IxInitialize:
		return s.initialize(ctx, ic, stats)
	case codec.IxSetParams:
		return s.setParams(ctx, ic, stats)
	default:
		return fmt.Errorf("%w: %s", ErrUnhandled, ic.Instruction.Name)
	}
}

func (s *GlobalService) load(ctx context.Context, ic *InstructionContext) (*domain.GlobalConfig, error) {
	g, found, err := s.configs.Find(ctx, domain.GlobalConfigID)
	if err != nil {
		return nil, fmt.Errorf("find global config: %w", err)
	}
	if !found {
		g = &domain.GlobalConfig{
			ID:             domain.GlobalConfigID,
			FeeBasisPoints: domain.DefaultFeeBasisPoints,
			CreatedAt:      ic.Timestamp,
		}
	}
	return g, nil
}

func (s *GlobalService) initialize(ctx context.Context, ic *InstructionContext, stats *Stats) error {
	g, err := s.load(ctx, ic)
	if err != nil {
		return err
	}

	g.FeeRecipient = ic.Instruction.Account(codec.AccUser)
	g.FeeBasisPoints = domain.DefaultFeeBasisPoints
	g.Initialized = true
	g.UpdatedSlot = ic.Slot
	g.UpdatedAt = ic.Timestamp
	s.configs.Save(g)
	stats.GlobalUpdates.Add(1)

	s.log.WithFields(logrus.Fields{
		"slot":          ic.Slot,
		"signature":     ic.Signature,
		"fee_recipient": g.FeeRecipient,
	}).Info("Protocol initialized")
	return nil
}

func (s *GlobalService) setParams(ctx context.Context, ic *InstructionContext, stats *Stats) error {
	params, ok := s.params(ic)
	if !ok {
		return fmt.Errorf("set_params: unexpected args %T", ic.Instruction.Args)
	}

	g, err := s.load(ctx, ic)
	if err != nil {
		return err
	}
	g.SetProtocolDefaults(params, ic.Slot)
	g.Initialized = true
	g.UpdatedSlot = ic.Slot
	g.UpdatedAt = ic.Timestamp
	s.configs.Save(g)
	stats.GlobalUpdates.Add(1)

	if ic.Defaults != nil {
		params.UpdatedSlot = ic.Slot
		*ic.Defaults = params
		stats.DefaultsChanged.Add(1)
	}

	s.log.WithFields(logrus.Fields{
		"slot":             ic.Slot,
		"signature":        ic.Signature,
		"fee_basis_points": params.FeeBasisPoints,
	}).Info("Protocol parameters updated")
	return nil
}

// params returns the new protocol defaults. The emitted SetParamsEvent
// wins over the instruction arguments.
func (s *GlobalService) params(ic *InstructionContext) (domain.ProtocolDefaults, bool) {
	if ev := findEvent[codec.SetParamsEvent](s.events.events(ic), codec.EvSetParams, nil); ev != nil {
		return domain.ProtocolDefaults{
			FeeRecipient:                ev.FeeRecipient.String(),
			InitialVirtualTokenReserves: ev.InitialVirtualTokenReserves,
			InitialVirtualSolReserves:   ev.InitialVirtualSolReserves,
			InitialRealTokenReserves:    ev.InitialRealTokenReserves,
			TokenTotalSupply:            ev.TokenTotalSupply,
			FeeBasisPoints:              ev.FeeBasisPoints,
		}, true
	}
	args, ok := ic.Instruction.Args.(*codec.SetParamsArgs)
	if !ok {
		return domain.ProtocolDefaults{}, false
	}
	return domain.ProtocolDefaults{
		FeeRecipient:                args.FeeRecipient.String(),
		InitialVirtualTokenReserves: args.InitialVirtualTokenReserves,
		InitialVirtualSolReserves:   args.InitialVirtualSolReserves,
		InitialRealTokenReserves:    args.InitialRealTokenReserves,
		TokenTotalSupply:            args.TokenTotalSupply,
		FeeBasisPoints:              args.FeeBasisPoints,
	}, true
}
