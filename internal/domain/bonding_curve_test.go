package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBondingCurve_ApplyBuy(t *testing.T) {
	tests := []struct {
		name      string
		realSol   uint64
		realToken uint64
		sol       uint64
		token     uint64
		wantSol   uint64
		wantToken uint64
	}{
		{"within reserves", 0, 1_000, 500, 400, 500, 600},
		{"token clamps at zero", 0, 0, 1_000_000_000, 500_000, 1_000_000_000, 0},
		{"exact drain", 10, 400, 5, 400, 15, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &BondingCurve{RealSolReserves: tt.realSol, RealTokenReserves: tt.realToken}
			c.ApplyBuy(tt.sol, tt.token)
			assert.Equal(t, tt.wantSol, c.RealSolReserves)
			assert.Equal(t, tt.wantToken, c.RealTokenReserves)
		})
	}
}

func TestBondingCurve_ApplySell(t *testing.T) {
	c := &BondingCurve{RealSolReserves: 100, RealTokenReserves: 50}
	c.ApplySell(250, 10)
	assert.Equal(t, uint64(0), c.RealSolReserves)
	assert.Equal(t, uint64(60), c.RealTokenReserves)
}

func TestBondingCurve_Drain(t *testing.T) {
	c := &BondingCurve{
		VirtualSolReserves:   31_000_000_000,
		VirtualTokenReserves: 900_000_000,
		RealSolReserves:      1_000,
		RealTokenReserves:    2_000,
	}
	c.Drain()
	assert.Zero(t, c.RealSolReserves)
	assert.Zero(t, c.RealTokenReserves)
	assert.Equal(t, uint64(31_000_000_000), c.VirtualSolReserves)
	assert.Equal(t, uint64(900_000_000), c.VirtualTokenReserves)
}

func TestBondingCurve_ReservesNeverWrap(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := &BondingCurve{}

	for i := 0; i < 10_000; i++ {
		sol := rng.Uint64() >> uint(rng.Intn(64))
		token := rng.Uint64() >> uint(rng.Intn(64))
		prevSol, prevToken := c.RealSolReserves, c.RealTokenReserves

		if rng.Intn(2) == 0 {
			c.ApplyBuy(sol, token)
			assert.GreaterOrEqual(t, c.RealSolReserves, prevSol, "buy must not decrease sol at step %d", i)
			assert.LessOrEqual(t, c.RealTokenReserves, prevToken, "buy must not increase tokens at step %d", i)
		} else {
			c.ApplySell(sol, token)
			assert.LessOrEqual(t, c.RealSolReserves, prevSol, "sell must not increase sol at step %d", i)
			assert.GreaterOrEqual(t, c.RealTokenReserves, prevToken, "sell must not decrease tokens at step %d", i)
		}
	}
}
