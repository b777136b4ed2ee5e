package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// TradeID returns the primary key of the trade at sequence seq in a transaction.
func TradeID(signature string, seq uint32) string {
	return signature + "-" + strconv.FormatUint(uint64(seq), 10)
}

// LifecycleEventID returns the primary key of a TokenCreated or TokenCompleted record.
func LifecycleEventID(signature string, slot uint64) string {
	return signature + "-" + strconv.FormatUint(slot, 10)
}

// WalletTokenID returns the primary key of a wallet-token stats row.
func WalletTokenID(wallet, mint string) string {
	return wallet + "-" + mint
}

// SanitizeText strips control characters and truncates s to at most max runes.
func SanitizeText(s string, max int) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if n >= max {
			break
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) || r == utf8.RuneError {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return strings.TrimSpace(b.String())
}
