package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/codec"
	"bonding-curve-indexer/internal/domain"
)

// TradeService records buys and sells.
type TradeService struct {
	trades  *cache.EntityCache[*domain.Trade]
	events  *eventSource
	tokens  TokenResolver
	curves  *CurveService
	wallets *WalletStatsService
	log     logrus.FieldLogger
}

// Process handles buy and sell. Trades without an emitted TradeEvent are
// skipped.
func (s *TradeService) Process(ctx context.Context, ic *InstructionContext, stats *Stats) error {
	switch ic.Instruction.Name {
	case codec.IxBuy, codec.IxSell:
	default:
		return fmt.Errorf("%w: %s", ErrUnhandled, ic.Instruction.Name)
	}

	mint := ic.Instruction.Account(codec.AccMint)
	curveID := ic.Instruction.Account(codec.AccBondingCurve)

	events := s.events.events(ic)
	ev := findEvent(events, codec.EvTrade, func(e *codec.TradeEvent) bool { return e.Mint.String() == mint })
	if ev == nil {
		stats.TradesWithoutEvent.Add(1)
		s.log.WithFields(logrus.Fields{
			"slot":      ic.Slot,
			"signature": ic.Signature,
			"mint":      mint,
		}).Debug("Trade without TradeEvent, skipping")
		return nil
	}
	complete := findEvent(events, codec.EvComplete, func(e *codec.CompleteEvent) bool { return e.Mint.String() == mint }) != nil

	if _, err := s.tokens.GetToken(ctx, ic, stats, mint, curveID, true); err != nil {
		return err
	}

	curve, err := s.curves.ApplyTrade(ctx, ic, stats, curveID, mint, ev, complete)
	if err != nil {
		return err
	}

	user := tradeWallet(ev, ic.Instruction.Account(codec.AccUser))

	trade := &domain.Trade{
		ID:                   domain.TradeID(ic.Signature, ic.Sequence),
		Signature:            ic.Signature,
		Sequence:             ic.Sequence,
		Mint:                 mint,
		BondingCurve:         curveID,
		User:                 user,
		IsBuy:                ev.IsBuy,
		SolAmount:            ev.SolAmount,
		TokenAmount:          ev.TokenAmount,
		VirtualSolReserves:   curve.VirtualSolReserves,
		VirtualTokenReserves: curve.VirtualTokenReserves,
		RealSolReserves:      curve.RealSolReserves,
		RealTokenReserves:    curve.RealTokenReserves,
		Slot:                 ic.Slot,
		Timestamp:            tradeTimestamp(ic, ev),
	}
	s.trades.Save(trade)
	stats.TradesRecorded.Add(1)

	return s.wallets.ApplyTrade(ctx, trade)
}

// tradeWallet is the wallet a trade is attributed to: the event's user,
// or the user account when the event names none.
func tradeWallet(ev *codec.TradeEvent, account string) string {
	if ev == nil || ev.User.IsZero() {
		return account
	}
	return ev.User.String()
}

// tradeTimestamp prefers the block time and falls back to the event clock.
func tradeTimestamp(ic *InstructionContext, ev *codec.TradeEvent) int64 {
	if ic.Timestamp != 0 {
		return ic.Timestamp
	}
	return ev.Timestamp * 1000
}
