package solana

import (
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pumpProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

func TestBondingCurveAddress_MatchesSolanaGo(t *testing.T) {
	mints := []string{
		"So11111111111111111111111111111111111111112",
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
	}
	program := solanago.MustPublicKeyFromBase58(pumpProgram)

	for _, mint := range mints {
		got, err := BondingCurveAddress(mint, pumpProgram)
		require.NoError(t, err)

		mintKey := solanago.MustPublicKeyFromBase58(mint)
		want, _, err := solanago.FindProgramAddress([][]byte{[]byte(BondingCurveSeed), mintKey[:]}, program)
		require.NoError(t, err)

		assert.Equal(t, want.String(), got, mint)
	}
}

func TestBondingCurveAddress_Deterministic(t *testing.T) {
	a, err := BondingCurveAddress("So11111111111111111111111111111111111111112", pumpProgram)
	require.NoError(t, err)
	b, err := BondingCurveAddress("So11111111111111111111111111111111111111112", pumpProgram)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFindProgramAddress_InvalidInput(t *testing.T) {
	_, err := BondingCurveAddress("not-base58!", pumpProgram)
	assert.Error(t, err)

	_, _, err = FindProgramAddress([][]byte{make([]byte, 33)}, pumpProgram)
	assert.Error(t, err)

	_, _, err = FindProgramAddress(nil, "short")
	assert.Error(t, err)
}
