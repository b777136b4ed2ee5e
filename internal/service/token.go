package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/codec"
	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/solana"
)

// TokenResolver resolves tokens on behalf of other services.
type TokenResolver interface {
	// GetToken returns the token for mint. When it is unknown and
	// createIfMissing is set, a placeholder bound to curveHint (or the
	// derived curve address when empty) is created.
	GetToken(ctx context.Context, ic *InstructionContext, stats *Stats, mint, curveHint string, createIfMissing bool) (*domain.Token, error)
	// CompleteToken marks the token for mint completed.
	CompleteToken(ctx context.Context, ic *InstructionContext, stats *Stats, mint, curveHint string) error
}

// TokenService handles create and owns token resolution.
type TokenService struct {
	programID string
	tokens    *cache.EntityCache[*domain.Token]
	created   *cache.EntityCache[*domain.TokenCreated]
	events    *eventSource
	curves    CurveResolver
	log       logrus.FieldLogger
}

// createFields are the descriptive fields of a create, from its event or arguments.
type createFields struct {
	mint, curve, user string
	name, symbol, uri string
}

// Process handles create.
func (s *TokenService) Process(ctx context.Context, ic *InstructionContext, stats *Stats) error {
	if ic.Instruction.Name != codec.IxCreate {
		return fmt.Errorf("%w: %s", ErrUnhandled, ic.Instruction.Name)
	}

	f, err := s.createFields(ic)
	if err != nil {
		return err
	}

	tok, found, err := s.tokens.Find(ctx, f.mint)
	if err != nil {
		return fmt.Errorf("find token: %w", err)
	}
	if !found {
		tok = &domain.Token{
			Mint:     f.mint,
			Decimals: domain.DefaultTokenDecimals,
			Status:   domain.TokenStatusActive,
		}
	} else if tok.IsPlaceholder {
		s.log.WithFields(logrus.Fields{
			"slot": ic.Slot,
			"mint": f.mint,
		}).Debug("Replacing placeholder token")
	}

	// Status is kept: a placeholder may already have completed.
	tok.Name = f.name
	tok.Symbol = f.symbol
	tok.URI = f.uri
	tok.Creator = f.user
	tok.BondingCurve = f.curve
	tok.IsPlaceholder = false
	tok.CreatedSlot = ic.Slot
	tok.CreatedAt = ic.Timestamp
	tok.UpdatedAt = ic.Timestamp
	s.tokens.Save(tok)

	if err := s.curves.OpenCurve(ctx, ic, stats, f.curve, f.mint); err != nil {
		return err
	}

	s.created.Save(&domain.TokenCreated{
		ID:           domain.LifecycleEventID(ic.Signature, ic.Slot),
		Mint:         f.mint,
		BondingCurve: f.curve,
		User:         f.user,
		Name:         f.name,
		Symbol:       f.symbol,
		URI:          f.uri,
		Signature:    ic.Signature,
		Slot:         ic.Slot,
		Timestamp:    ic.Timestamp,
	})
	stats.TokensCreated.Add(1)
	return nil
}

func (s *TokenService) createFields(ic *InstructionContext) (createFields, error) {
	mint := ic.Instruction.Account(codec.AccMint)
	match := func(ev *codec.CreateEvent) bool { return ev.Mint.String() == mint }

	var f createFields
	if ev := findEvent(s.events.events(ic), codec.EvCreate, match); ev != nil {
		f = createFields{
			mint:   ev.Mint.String(),
			curve:  ev.BondingCurve.String(),
			user:   ev.User.String(),
			name:   ev.Name,
			symbol: ev.Symbol,
			uri:    ev.URI,
		}
	} else {
		args, ok := ic.Instruction.Args.(*codec.CreateArgs)
		if !ok {
			return f, fmt.Errorf("create: unexpected args %T", ic.Instruction.Args)
		}
		f = createFields{
			mint:   mint,
			curve:  ic.Instruction.Account(codec.AccBondingCurve),
			user:   ic.Instruction.Account(codec.AccUser),
			name:   args.Name,
			symbol: args.Symbol,
			uri:    args.URI,
		}
	}

	f.name = domain.SanitizeText(f.name, domain.MaxNameLength)
	f.symbol = domain.SanitizeText(f.symbol, domain.MaxSymbolLength)
	f.uri = domain.SanitizeText(f.uri, domain.MaxURILength)
	return f, nil
}

// GetToken implements TokenResolver.
func (s *TokenService) GetToken(ctx context.Context, ic *InstructionContext, stats *Stats, mint, curveHint string, createIfMissing bool) (*domain.Token, error) {
	tok, found, err := s.tokens.Find(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	if found {
		return tok, nil
	}

	stats.MissingReferences.Add(1)
	if !createIfMissing {
		return nil, fmt.Errorf("token %s: %w", mint, ErrMissingReference)
	}

	curve := curveHint
	if curve == "" {
		curve, err = solana.BondingCurveAddress(mint, s.programID)
		if err != nil {
			return nil, fmt.Errorf("derive curve for %s: %w", mint, err)
		}
	}

	tok = domain.NewPlaceholderToken(mint, curve, ic.Slot, ic.Timestamp)
	s.tokens.Save(tok)
	stats.PlaceholdersCreated.Add(1)

	s.log.WithFields(logrus.Fields{
		"slot":      ic.Slot,
		"signature": ic.Signature,
		"mint":      mint,
	}).WithError(ErrMissingReference).Debug("Created placeholder token")
	return tok, nil
}

// CompleteToken implements TokenResolver.
func (s *TokenService) CompleteToken(ctx context.Context, ic *InstructionContext, stats *Stats, mint, curveHint string) error {
	tok, err := s.GetToken(ctx, ic, stats, mint, curveHint, true)
	if err != nil {
		return err
	}
	if tok.Status == domain.TokenStatusCompleted {
		return nil
	}

	completedAt := ic.Timestamp
	tok.Status = domain.TokenStatusCompleted
	tok.CompletedAt = &completedAt
	tok.UpdatedAt = ic.Timestamp
	s.tokens.Save(tok)
	return nil
}
