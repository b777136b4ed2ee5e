package service

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/domain"
)

// lamportsExp scales lamports to SOL.
const lamportsExp = -9

// LamportsToSol converts a lamport amount to whole SOL.
func LamportsToSol(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), lamportsExp)
}

// WalletStatsService maintains per-wallet and per-wallet-token trade aggregates.
type WalletStatsService struct {
	wallets *cache.EntityCache[*domain.WalletStats]
	pairs   *cache.EntityCache[*domain.WalletTokenStats]
}

// ApplyTrade folds trade into the trader's pair and wallet aggregates.
func (s *WalletStatsService) ApplyTrade(ctx context.Context, trade *domain.Trade) error {
	sol := LamportsToSol(trade.SolAmount)
	pairID := domain.WalletTokenID(trade.User, trade.Mint)

	pair, found, err := s.pairs.Find(ctx, pairID)
	if err != nil {
		return fmt.Errorf("find wallet token stats: %w", err)
	}
	newPair := !found
	if newPair {
		pair = &domain.WalletTokenStats{ID: pairID, Wallet: trade.User, Mint: trade.Mint}
	}

	wasPositive := pair.RealizedPnlSol.IsPositive()
	pair.Apply(trade.IsBuy, sol, trade.Timestamp)
	if trade.IsBuy {
		pair.TokensBought += trade.TokenAmount
	} else {
		pair.TokensSold += trade.TokenAmount
	}
	crossed := !pair.Successful && !wasPositive && pair.RealizedPnlSol.IsPositive()
	if crossed {
		pair.Successful = true
	}
	pair.UpdatedAt = trade.Timestamp
	s.pairs.Save(pair)

	w, found, err := s.wallets.Find(ctx, trade.User)
	if err != nil {
		return fmt.Errorf("find wallet stats: %w", err)
	}
	if !found {
		w = &domain.WalletStats{Wallet: trade.User}
	}
	w.Apply(trade.IsBuy, sol, trade.Timestamp)
	if newPair {
		w.TokensTraded++
	}
	if crossed {
		w.SuccessfulTokens++
	}
	w.UpdatedAt = trade.Timestamp
	s.wallets.Save(w)
	return nil
}
