package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/codec"
	"bonding-curve-indexer/internal/solana"
)

// Config configures Wire.
type Config struct {
	ProgramID      string
	EventAuthority string
	Registry       *codec.Registry
	Logger         logrus.FieldLogger
}

// Services is the wired set of domain services.
type Services struct {
	Global  *GlobalService
	Tokens  *TokenService
	Curves  *CurveService
	Trades  *TradeService
	Wallets *WalletStatsService

	routes map[string]Processor
}

// Wire builds every service over caches. Token and curve services refer to
// each other through TokenResolver and CurveResolver; those references are
// bound after construction.
func Wire(caches *cache.Set, cfg Config) *Services {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "service")

	registry := cfg.Registry
	if registry == nil {
		registry = codec.DefaultRegistry()
	}
	events := &eventSource{
		programID:      cfg.ProgramID,
		eventAuthority: cfg.EventAuthority,
		registry:       registry,
	}

	s := &Services{
		Global: &GlobalService{
			configs: caches.GlobalConfigs,
			events:  events,
			log:     log,
		},
		Tokens: &TokenService{
			programID: cfg.ProgramID,
			tokens:    caches.Tokens,
			created:   caches.TokenCreated,
			events:    events,
			log:       log,
		},
		Curves: &CurveService{
			curves:    caches.BondingCurves,
			completed: caches.TokenCompleted,
			log:       log,
		},
		Wallets: &WalletStatsService{
			wallets: caches.WalletStats,
			pairs:   caches.WalletTokenStats,
		},
	}
	s.Trades = &TradeService{
		trades:  caches.Trades,
		events:  events,
		curves:  s.Curves,
		wallets: s.Wallets,
		log:     log,
	}

	// Second phase: mutual references.
	s.Tokens.curves = s.Curves
	s.Curves.tokens = s.Tokens
	s.Trades.tokens = s.Tokens

	s.routes = map[string]Processor{
		codec.IxInitialize: s.Global,
		codec.IxSetParams:  s.Global,
		codec.IxCreate:     s.Tokens,
		codec.IxBuy:        s.Trades,
		codec.IxSell:       s.Trades,
		codec.IxWithdraw:   s.Curves,
	}
	return s
}

// Handles reports whether an instruction name has a service.
func (s *Services) Handles(name string) bool {
	_, ok := s.routes[name]
	return ok
}

// Process routes ic to the service for its instruction.
func (s *Services) Process(ctx context.Context, ic *InstructionContext, stats *Stats) error {
	p, ok := s.routes[ic.Instruction.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnhandled, ic.Instruction.Name)
	}
	return p.Process(ctx, ic, stats)
}

// TradeWallet returns the wallet whose stats a buy or sell will update,
// read from the TradeEvent in raw's event scope.
func (s *Services) TradeWallet(raw *solana.Instruction, accounts map[string]string) string {
	mint := accounts[codec.AccMint]
	ev := findEvent(s.Trades.events.events(&InstructionContext{Raw: raw}), codec.EvTrade,
		func(e *codec.TradeEvent) bool { return e.Mint.String() == mint })
	return tradeWallet(ev, accounts[codec.AccUser])
}
