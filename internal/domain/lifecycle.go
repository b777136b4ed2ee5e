package domain

// TokenCreated is an immutable record of a create instruction.
// Corresponds to token_created table in PostgreSQL.
type TokenCreated struct {
	ID           string // PRIMARY KEY, "{signature}-{slot}"
	Mint         string
	BondingCurve string
	User         string
	Name         string
	Symbol       string
	URI          string
	Signature    string
	Slot         uint64
	Timestamp    int64 // Unix timestamp in milliseconds
}

// EntityID implements Entity.
func (e *TokenCreated) EntityID() string { return e.ID }

// Clone implements Entity.
func (e *TokenCreated) Clone() *TokenCreated {
	c := *e
	return &c
}

// Sanitized implements Sanitizable.
func (e *TokenCreated) Sanitized() *TokenCreated {
	c := e.Clone()
	c.Name = SanitizeText(c.Name, MaxNameLength)
	c.Symbol = SanitizeText(c.Symbol, MaxSymbolLength)
	c.URI = SanitizeText(c.URI, MaxURILength)
	return c
}

// TokenCompleted is an immutable record of a withdraw instruction.
// Corresponds to token_completed table in PostgreSQL.
type TokenCompleted struct {
	ID           string // PRIMARY KEY, "{signature}-{slot}"
	Mint         string
	BondingCurve string
	User         string
	Signature    string
	Slot         uint64
	Timestamp    int64 // Unix timestamp in milliseconds
}

// EntityID implements Entity.
func (e *TokenCompleted) EntityID() string { return e.ID }

// Clone implements Entity.
func (e *TokenCompleted) Clone() *TokenCompleted {
	c := *e
	return &c
}
