package domain

// TokenStatus is the lifecycle state of a token.
type TokenStatus string

// Token status constants.
const (
	TokenStatusActive    TokenStatus = "active"
	TokenStatusCompleted TokenStatus = "completed"
)

// DefaultTokenDecimals is the decimal count of every token minted by the protocol.
const DefaultTokenDecimals uint8 = 6

// Bounds applied to token strings before they reach storage.
const (
	MaxNameLength   = 128
	MaxSymbolLength = 32
	MaxURILength    = 256

	// placeholderSymbolLength is the number of mint characters used as a placeholder symbol.
	placeholderSymbolLength = 10
)

// Token represents a token launched on the bonding-curve program.
// Corresponds to tokens table in PostgreSQL.
type Token struct {
	Mint          string // PRIMARY KEY, mint address
	Name          string
	Symbol        string
	URI           string
	Decimals      uint8
	Creator       string      // creator wallet, empty for placeholders
	Status        TokenStatus // active | completed
	BondingCurve  string      // soft reference to bonding_curves.id
	IsPlaceholder bool        // synthesized before its create instruction was seen
	CreatedSlot   uint64
	CreatedAt     int64  // Unix timestamp in milliseconds
	UpdatedAt     int64  // Unix timestamp in milliseconds
	CompletedAt   *int64 // nullable, set on withdraw
}

// EntityID implements Entity.
func (t *Token) EntityID() string { return t.Mint }

// Clone implements Entity.
func (t *Token) Clone() *Token {
	c := *t
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}

// Sanitized implements Sanitizable.
func (t *Token) Sanitized() *Token {
	c := t.Clone()
	c.Name = SanitizeText(c.Name, MaxNameLength)
	c.Symbol = SanitizeText(c.Symbol, MaxSymbolLength)
	c.URI = SanitizeText(c.URI, MaxURILength)
	return c
}

// NewPlaceholderToken builds a token whose descriptive fields are derived from the mint.
// It is overwritten when the real create instruction is processed.
func NewPlaceholderToken(mint, bondingCurve string, slot uint64, timestamp int64) *Token {
	return &Token{
		Mint:          mint,
		Name:          mint,
		Symbol:        PlaceholderSymbol(mint),
		Decimals:      DefaultTokenDecimals,
		Status:        TokenStatusActive,
		BondingCurve:  bondingCurve,
		IsPlaceholder: true,
		CreatedSlot:   slot,
		CreatedAt:     timestamp,
		UpdatedAt:     timestamp,
	}
}

// PlaceholderSymbol returns the symbol used for a placeholder token.
func PlaceholderSymbol(mint string) string {
	if len(mint) <= placeholderSymbolLength {
		return mint
	}
	return mint[:placeholderSymbolLength]
}
