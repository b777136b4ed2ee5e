package postgres

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// numeric converts a u64 amount into a NUMERIC(20,0) parameter.
func numeric(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// u64Col scans a NUMERIC(20,0) column into a uint64.
type u64Col struct {
	dst *uint64
}

func (c u64Col) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return err
	}
	if d.Sign() < 0 || !d.IsInteger() {
		return fmt.Errorf("numeric %s is not a u64", d)
	}
	b := d.BigInt()
	if !b.IsUint64() {
		return fmt.Errorf("numeric %s overflows u64", d)
	}
	*c.dst = b.Uint64()
	return nil
}

func u64(dst *uint64) u64Col {
	return u64Col{dst: dst}
}
