package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/codec"
	"bonding-curve-indexer/internal/domain"
)

// CurveResolver opens bonding curves on behalf of the token service.
type CurveResolver interface {
	// OpenCurve seeds the curve for a newly created token from the batch
	// defaults. An existing curve keeps its reserves and is bound to mint.
	OpenCurve(ctx context.Context, ic *InstructionContext, stats *Stats, curveID, mint string) error
}

// CurveService owns bonding curve reserve state and handles withdraw.
type CurveService struct {
	curves    *cache.EntityCache[*domain.BondingCurve]
	completed *cache.EntityCache[*domain.TokenCompleted]
	tokens    TokenResolver
	log       logrus.FieldLogger
}

func defaults(ic *InstructionContext) domain.ProtocolDefaults {
	if ic.Defaults == nil {
		return domain.DefaultProtocolDefaults()
	}
	return *ic.Defaults
}

// OpenCurve implements CurveResolver.
func (s *CurveService) OpenCurve(ctx context.Context, ic *InstructionContext, stats *Stats, curveID, mint string) error {
	c, found, err := s.curves.Find(ctx, curveID)
	if err != nil {
		return fmt.Errorf("find curve: %w", err)
	}
	if !found {
		s.curves.Save(defaults(ic).NewCurve(curveID, mint, ic.Timestamp))
		return nil
	}
	if c.Token == mint {
		return nil
	}
	c.Token = mint
	c.UpdatedAt = ic.Timestamp
	s.curves.Save(c)
	return nil
}

// ApplyTrade folds a trade event into the curve and returns the post-trade state.
// A curve that is not known yet is synthesized with empty real reserves.
func (s *CurveService) ApplyTrade(ctx context.Context, ic *InstructionContext, stats *Stats, curveID, mint string, ev *codec.TradeEvent, complete bool) (*domain.BondingCurve, error) {
	c, found, err := s.curves.Find(ctx, curveID)
	if err != nil {
		return nil, fmt.Errorf("find curve: %w", err)
	}
	if !found {
		c = defaults(ic).SynthesizedCurve(curveID, mint, ic.Timestamp)
		stats.CurvesSynthesized.Add(1)
		s.log.WithFields(logrus.Fields{
			"slot":  ic.Slot,
			"curve": curveID,
			"mint":  mint,
		}).Debug("Synthesized missing bonding curve")
	}
	if c.Token == "" {
		c.Token = mint
	}

	if ev.IsBuy {
		c.ApplyBuy(ev.SolAmount, ev.TokenAmount)
	} else {
		c.ApplySell(ev.SolAmount, ev.TokenAmount)
	}
	c.VirtualSolReserves = ev.VirtualSolReserves
	c.VirtualTokenReserves = ev.VirtualTokenReserves
	if ev.HasRealReserves {
		c.RealSolReserves = ev.RealSolReserves
		c.RealTokenReserves = ev.RealTokenReserves
	}
	if ic.Slot > c.LastTradeSlot {
		c.LastTradeSlot = ic.Slot
	}
	if complete {
		c.Complete = true
	}
	c.UpdatedAt = ic.Timestamp
	s.curves.Save(c)
	return c, nil
}

// Process handles withdraw.
func (s *CurveService) Process(ctx context.Context, ic *InstructionContext, stats *Stats) error {
	if ic.Instruction.Name != codec.IxWithdraw {
		return fmt.Errorf("%w: %s", ErrUnhandled, ic.Instruction.Name)
	}

	mint := ic.Instruction.Account(codec.AccMint)
	curveID := ic.Instruction.Account(codec.AccBondingCurve)
	log := s.log.WithFields(logrus.Fields{
		"slot":      ic.Slot,
		"signature": ic.Signature,
		"mint":      mint,
		"curve":     curveID,
	})

	c, found, err := s.curves.Find(ctx, curveID)
	if err != nil {
		return fmt.Errorf("find curve: %w", err)
	}
	if found {
		c.Drain()
		c.Complete = true
		if c.Token == "" {
			c.Token = mint
		}
		c.UpdatedAt = ic.Timestamp
		s.curves.Save(c)
	} else {
		stats.MissingReferences.Add(1)
		log.WithError(ErrMissingReference).Warn("Withdraw for unknown bonding curve, reserves not updated")
	}

	if err := s.tokens.CompleteToken(ctx, ic, stats, mint, curveID); err != nil {
		return err
	}

	id := domain.LifecycleEventID(ic.Signature, ic.Slot)
	if _, exists, err := s.completed.Find(ctx, id); err != nil {
		return fmt.Errorf("find token completion: %w", err)
	} else if exists {
		return nil
	}
	s.completed.Save(&domain.TokenCompleted{
		ID:           id,
		Mint:         mint,
		BondingCurve: curveID,
		User:         ic.Instruction.Account(codec.AccUser),
		Signature:    ic.Signature,
		Slot:         ic.Slot,
		Timestamp:    ic.Timestamp,
	})
	stats.TokensCompleted.Add(1)
	log.Info("Token completed")
	return nil
}
