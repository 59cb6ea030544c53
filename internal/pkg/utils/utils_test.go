package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBigInt(t *testing.T) {
	huge, ok := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	require.True(t, ok)

	tests := []struct {
		name     string
		amount   *big.Int
		decimals uint8
		want     string
	}{
		{"nil", nil, 18, "0"},
		{"zero", big.NewInt(0), 18, "0"},
		{"whole", big.NewInt(1_000_000), 6, "1"},
		{"fraction", big.NewInt(1_234_500_000_000_000_000), 18, "1.2345"},
		{"dust", big.NewInt(1), 9, "0.000000001"},
		{"no decimals", big.NewInt(42), 0, "42"},
		{"negative", big.NewInt(-1500), 3, "-1.5"},
		{"uint256 max", huge, 18, "115792089237316195423570985008687907853269984665640564039457.584007913129639935"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatBigInt(tt.amount, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatchStrings(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, BatchStrings(items, 2))
	assert.Equal(t, [][]string{items}, BatchStrings(items, 0))
	assert.Empty(t, BatchStrings(nil, 3))
}

func TestParseBigInt(t *testing.T) {
	v, err := ParseBigInt(" 18446744073709551616 ")
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551616", v.String())

	_, err = ParseBigInt("12.5")
	assert.Error(t, err)
}
