package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	yesTok = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	noTok  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	alice  = common.HexToAddress("0x000000000000000000000000000000000000a11c")
)

func TestMarketKey_Deterministic(t *testing.T) {
	assert.Equal(t, MarketKey(yesTok, noTok), MarketKey(yesTok, noTok))
	assert.NotEqual(t, MarketKey(yesTok, noTok), MarketKey(noTok, yesTok))
}

func TestKeys_DisjointAcrossRecordTypes(t *testing.T) {
	m := MarketKey(yesTok, noTok)
	keys := []Key{
		ConfigKey(),
		m,
		LPPositionKey(m, alice),
		UserInfoKey(m, alice),
		ResolutionKey(m),
		DisputeKey(ResolutionKey(m), alice),
	}
	seen := make(map[Key]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	assert.NotEqual(t, VaultAddress(m), InsuranceAddress())
}

func TestKeyFromHex_RoundTrip(t *testing.T) {
	k := MarketKey(yesTok, noTok)
	parsed, err := KeyFromHex(k.Hex())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	_, err = KeyFromHex("0x1234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateDisputeInput(t *testing.T) {
	assert.ErrorIs(t, ValidateDisputeInput("fifteen chars!!", nil), ErrInvalidDispute)
	assert.NoError(t, ValidateDisputeInput("twenty-five characters ok", nil))
	assert.ErrorIs(t, ValidateDisputeInput("twenty-five characters ok", make([]string, 6)), ErrInvalidDispute)
}

func TestOppositeResult(t *testing.T) {
	r := OppositeResult(Resolution{YesRatioBps: 10_000, NoRatioBps: 0, Winner: TokenYes})
	assert.Equal(t, DisputeResult{YesRatioBps: 0, NoRatioBps: 10_000, Winner: TokenNo}, r)
}
