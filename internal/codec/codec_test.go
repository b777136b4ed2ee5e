package codec

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testMint  = solana.MustPublicKeyFromBase58("7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr")
	testCurve = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	testUser  = solana.MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
)

func accountList(n int) []string {
	accounts := make([]string, n)
	for i := range accounts {
		accounts[i] = solana.PublicKeyFromBytes(append(make([]byte, 31), byte(i+1))).String()
	}
	return accounts
}

func TestDiscriminators_MatchProgram(t *testing.T) {
	tests := []struct {
		name string
		got  Discriminator
		want Discriminator
	}{
		{"buy", InstructionDiscriminator(IxBuy), Discriminator{102, 6, 61, 18, 1, 218, 235, 234}},
		{"sell", InstructionDiscriminator(IxSell), Discriminator{51, 230, 133, 164, 1, 127, 131, 173}},
		{"create", InstructionDiscriminator(IxCreate), Discriminator{24, 30, 200, 40, 5, 28, 7, 119}},
		{"trade event", EventDiscriminator(EvTrade), Discriminator{189, 219, 127, 211, 78, 230, 97, 238}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestRegistry_InstructionRoundTrip(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name string
		args interface{}
	}{
		{IxInitialize, &InitializeArgs{}},
		{IxSetParams, &SetParamsArgs{
			FeeRecipient:                testUser,
			InitialVirtualTokenReserves: 1_073_000_000_000_000,
			InitialVirtualSolReserves:   30_000_000_000,
			InitialRealTokenReserves:    793_100_000_000_000,
			TokenTotalSupply:            1_000_000_000_000_000,
			FeeBasisPoints:              100,
		}},
		{IxCreate, &CreateArgs{Name: "Foo", Symbol: "FOO", URI: "https://example.com/foo.json"}},
		{IxBuy, &BuyArgs{Amount: 18_446_744_073_709_551_615, MaxSolCost: 1 << 60}},
		{IxSell, &SellArgs{Amount: 500_000, MinSolOutput: 0}},
		{IxWithdraw, &WithdrawArgs{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := reg.EncodeInstruction(tt.name, tt.args)
			require.NoError(t, err)

			l, _ := reg.Layout(tt.name)
			ix, err := reg.DecodeInstruction(data, accountList(len(l.Accounts)+3))
			require.NoError(t, err)

			assert.Equal(t, tt.name, ix.Name)
			assert.Equal(t, tt.args, ix.Args)
			assert.Len(t, ix.Accounts, len(l.Accounts))
		})
	}
}

func TestRegistry_EventRoundTrip(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name string
		ev   interface{}
	}{
		{EvCreate, &CreateEvent{Name: "Foo", Symbol: "FOO", URI: "ipfs://foo", Mint: testMint, BondingCurve: testCurve, User: testUser}},
		{EvTrade, &TradeEvent{
			Mint: testMint, SolAmount: 1_000_000_000, TokenAmount: 500_000, IsBuy: true, User: testUser,
			Timestamp: 1_700_000_000, VirtualSolReserves: 31_000_000_000, VirtualTokenReserves: 900_000_000,
		}},
		{EvTrade, &TradeEvent{
			Mint: testMint, SolAmount: 7, TokenAmount: 9, User: testUser, Timestamp: -1,
			HasRealReserves: true, RealSolReserves: 11, RealTokenReserves: 13,
		}},
		{EvComplete, &CompleteEvent{User: testUser, Mint: testMint, BondingCurve: testCurve, Timestamp: 1_700_000_500}},
		{EvSetParams, &SetParamsEvent{FeeRecipient: testUser, FeeBasisPoints: 95, TokenTotalSupply: 42}},
	}

	for _, tt := range tests {
		for _, tagged := range []bool{false, true} {
			t.Run(tt.name, func(t *testing.T) {
				data, err := reg.EncodeEvent(tt.name, tt.ev, tagged)
				require.NoError(t, err)
				assert.Equal(t, tagged, IsEventPayload(data))

				ev, err := reg.DecodeEvent(data)
				require.NoError(t, err)
				assert.Equal(t, tt.name, ev.Name)
				assert.Equal(t, tt.ev, ev.Data)
			})
		}
	}
}

func TestRegistry_TruncatedPayload(t *testing.T) {
	reg := DefaultRegistry()

	data, err := reg.EncodeInstruction(IxBuy, &BuyArgs{Amount: 1, MaxSolCost: 2})
	require.NoError(t, err)

	_, err = reg.DecodeInstruction(data[:16], accountList(7))
	require.Error(t, err)

	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, IxBuy, decErr.Layout)
	assert.Equal(t, "maxSolCost", decErr.Field)
	assert.Equal(t, 16, decErr.Offset)
	assert.Equal(t, InstructionDiscriminator(IxBuy), decErr.Discriminator)
}

func TestRegistry_StringLengthOverflow(t *testing.T) {
	reg := DefaultRegistry()

	data, err := reg.EncodeInstruction(IxCreate, &CreateArgs{Name: "Foo", Symbol: "FOO", URI: "u"})
	require.NoError(t, err)

	// Corrupt the name length prefix
	data[8] = 0xff
	data[9] = 0xff

	_, err = reg.DecodeInstruction(data, accountList(8))
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "name", decErr.Field)
	assert.Equal(t, 8, decErr.Offset)
}

func TestRegistry_Unrecognized(t *testing.T) {
	reg := DefaultRegistry()

	_, err := reg.DecodeInstruction([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, nil)
	assert.True(t, errors.Is(err, ErrUnrecognized))

	_, err = reg.DecodeInstruction([]byte{1, 2}, nil)
	assert.True(t, errors.Is(err, ErrShortPayload))

	// Event payloads are not instructions
	ev, err := reg.EncodeEvent(EvComplete, &CompleteEvent{}, false)
	require.NoError(t, err)
	_, err = reg.DecodeInstruction(ev, nil)
	assert.True(t, errors.Is(err, ErrUnrecognized))
}

func TestRegistry_MissingAccounts(t *testing.T) {
	reg := DefaultRegistry()

	data, err := reg.EncodeInstruction(IxSell, &SellArgs{Amount: 1, MinSolOutput: 1})
	require.NoError(t, err)

	_, err = reg.DecodeInstruction(data, accountList(3))
	assert.True(t, errors.Is(err, ErrMissingAccounts))

	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, IxSell, decErr.Layout)
	assert.Equal(t, InstructionDiscriminator(IxSell), decErr.Discriminator)
	assert.Equal(t, DiscriminatorSize, decErr.Offset)
}

func TestRegistry_ShortPayloadIsDecodeError(t *testing.T) {
	reg := DefaultRegistry()

	_, err := reg.DecodeInstruction([]byte{0x66, 0x06, 0x3d}, nil)
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.True(t, errors.Is(err, ErrShortPayload))
	assert.Equal(t, 3, decErr.Offset)
	assert.Equal(t, Discriminator{0x66, 0x06, 0x3d}, decErr.Discriminator)
	assert.Contains(t, err.Error(), "at offset 3")

	_, err = reg.DecodeEvent([]byte{1, 2, 3, 4, 5})
	require.True(t, errors.As(err, &decErr))
	assert.True(t, errors.Is(err, ErrShortPayload))
	assert.Equal(t, 5, decErr.Offset)
}

func TestRegistry_NamedAccounts(t *testing.T) {
	reg := DefaultRegistry()

	data, err := reg.EncodeInstruction(IxBuy, &BuyArgs{Amount: 1, MaxSolCost: 1})
	require.NoError(t, err)

	accounts := accountList(12)
	ix, err := reg.DecodeInstruction(data, accounts)
	require.NoError(t, err)

	assert.Equal(t, accounts[2], ix.Account(AccMint))
	assert.Equal(t, accounts[3], ix.Account(AccBondingCurve))
	assert.Equal(t, accounts[6], ix.Account(AccUser))
	assert.Empty(t, ix.Account("unknown"))
}

func TestRegistry_TradeEventIgnoresNewerTrailingFields(t *testing.T) {
	reg := DefaultRegistry()

	data, err := reg.EncodeEvent(EvTrade, &TradeEvent{
		Mint: testMint, SolAmount: 5, TokenAmount: 6, IsBuy: false, User: testUser,
		HasRealReserves: true, RealSolReserves: 1, RealTokenReserves: 2,
	}, true)
	require.NoError(t, err)

	data = append(data, testUser[:]...)

	ev, err := reg.DecodeEvent(data)
	require.NoError(t, err)
	trade := ev.Data.(*TradeEvent)
	assert.True(t, trade.HasRealReserves)
	assert.Equal(t, uint64(2), trade.RealTokenReserves)
}
