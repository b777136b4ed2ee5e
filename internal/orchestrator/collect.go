package orchestrator

import (
	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/codec"
	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/solana"
)

// item is one program instruction of the batch, in stream order.
type item struct {
	raw       solana.Instruction // Inner holds the instruction's event scope
	signature string
	slot      uint64
	timestamp int64
	sequence  uint32

	// Filled by the id pass; empty when the discriminator is unknown.
	name     string
	accounts map[string]string
	wallet   string // buy and sell only

	outcome outcome
}

type outcome int

const (
	outcomePending outcome = iota
	outcomeDispatched
	outcomeSkipped
	outcomeDecodeFailed
	outcomeFailed
)

// collect flattens blocks into program instructions. Failed transactions
// are dropped. Program instructions invoked through another program get
// the sibling inner instructions that follow them, up to the next program
// instruction, as their event scope.
func (o *Orchestrator) collect(blocks []*solana.Block) []*item {
	var items []*item
	for _, block := range blocks {
		for t := range block.Transactions {
			tx := &block.Transactions[t]
			if tx.Failed() {
				continue
			}
			base := &item{
				signature: tx.Signature,
				slot:      block.Slot,
				timestamp: block.TimestampMs(),
			}

			for i := range tx.Instructions {
				ix := &tx.Instructions[i]
				if o.isProgramInstruction(ix) {
					items = append(items, base.with(*ix, ix.Inner))
					continue
				}
				for j := range ix.Inner {
					inner := &ix.Inner[j]
					if !o.isProgramInstruction(inner) {
						continue
					}
					items = append(items, base.with(*inner, o.siblingScope(ix.Inner[j+1:])))
				}
			}
		}
	}
	return items
}

func (it *item) with(raw solana.Instruction, scope []solana.Instruction) *item {
	n := &item{
		raw:       raw,
		signature: it.signature,
		slot:      it.slot,
		timestamp: it.timestamp,
	}
	n.raw.Inner = scope
	return n
}

// isProgramInstruction reports whether ix targets the program and is not a
// self-CPI event.
func (o *Orchestrator) isProgramInstruction(ix *solana.Instruction) bool {
	return ix.ProgramID == o.programID && !codec.IsEventPayload(ix.Data)
}

func (o *Orchestrator) siblingScope(rest []solana.Instruction) []solana.Instruction {
	for k := range rest {
		if o.isProgramInstruction(&rest[k]) {
			return rest[:k]
		}
	}
	return rest
}

// identify names each item and its accounts from the discriminator alone,
// and assigns trade sequences per transaction in stream order.
// Unidentifiable items are left for dispatch to report.
func (o *Orchestrator) identify(items []*item) {
	var (
		lastSig string
		seq     uint32
	)
	for _, it := range items {
		if it.signature != lastSig {
			lastSig = it.signature
			seq = 0
		}

		l, err := o.registry.Identify(it.raw.Data)
		if err != nil || l.Kind != codec.KindInstruction {
			continue
		}
		accounts, err := o.registry.NameAccounts(l, it.raw.Accounts)
		if err != nil {
			continue
		}
		it.name = l.Name
		it.accounts = accounts

		if it.name == codec.IxBuy || it.name == codec.IxSell {
			it.sequence = seq
			seq++
			it.wallet = o.services.TradeWallet(&it.raw, accounts)
		}
	}
}

// prefetchIDs lists the entity ids the batch will touch.
func prefetchIDs(items []*item) cache.IDs {
	var ids cache.IDs
	seen := make(map[string]struct{})
	add := func(dst *[]string, kind, id string) {
		if id == "" {
			return
		}
		key := kind + "/" + id
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		*dst = append(*dst, id)
	}

	for _, it := range items {
		switch it.name {
		case codec.IxInitialize, codec.IxSetParams:
			ids.GlobalConfig = true
		case codec.IxCreate, codec.IxWithdraw:
			add(&ids.Tokens, cache.KindToken, it.accounts[codec.AccMint])
			add(&ids.BondingCurves, cache.KindBondingCurve, it.accounts[codec.AccBondingCurve])
		case codec.IxBuy, codec.IxSell:
			mint := it.accounts[codec.AccMint]
			add(&ids.Tokens, cache.KindToken, mint)
			add(&ids.BondingCurves, cache.KindBondingCurve, it.accounts[codec.AccBondingCurve])
			add(&ids.WalletStats, cache.KindWalletStats, it.wallet)
			if mint != "" && it.wallet != "" {
				add(&ids.WalletTokenStats, cache.KindWalletTokenStats, domain.WalletTokenID(it.wallet, mint))
			}
		}
	}
	return ids
}
