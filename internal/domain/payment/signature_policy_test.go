package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignaturePolicy(t *testing.T) {
	t.Run("creates valid tiered policy", func(t *testing.T) {
		policy, err := NewSignaturePolicy(1, []SignatureTier{
			{Threshold: decimal.NewFromInt(10000), Signatures: 2},
			{Threshold: decimal.NewFromInt(100000), Signatures: 3},
		})
		require.NoError(t, err)
		assert.NotNil(t, policy)
	})

	t.Run("creates flat policy without tiers", func(t *testing.T) {
		policy, err := NewSignaturePolicy(2, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, policy.RequiredSignatures(decimal.NewFromInt(1000000)))
	})

	t.Run("rejects base below one", func(t *testing.T) {
		_, err := NewSignaturePolicy(0, nil)
		require.Error(t, err)
	})

	t.Run("rejects non-positive thresholds", func(t *testing.T) {
		_, err := NewSignaturePolicy(1, []SignatureTier{
			{Threshold: decimal.Zero, Signatures: 2},
		})
		require.Error(t, err)
	})

	t.Run("rejects unordered thresholds", func(t *testing.T) {
		_, err := NewSignaturePolicy(1, []SignatureTier{
			{Threshold: decimal.NewFromInt(100000), Signatures: 2},
			{Threshold: decimal.NewFromInt(10000), Signatures: 3},
		})
		require.Error(t, err)
	})

	t.Run("rejects decreasing signature counts", func(t *testing.T) {
		_, err := NewSignaturePolicy(2, []SignatureTier{
			{Threshold: decimal.NewFromInt(10000), Signatures: 1},
		})
		require.Error(t, err)
	})
}

func TestSignaturePolicy_RequiredSignatures(t *testing.T) {
	policy, err := DefaultSignaturePolicy(decimal.NewFromInt(10000), decimal.NewFromInt(100000))
	require.NoError(t, err)

	tests := []struct {
		name   string
		amount decimal.Decimal
		want   int
	}{
		{"small amount needs one signature", decimal.NewFromInt(500), 1},
		{"just below first threshold", decimal.NewFromFloat(9999.99), 1},
		{"exactly first threshold", decimal.NewFromInt(10000), 2},
		{"between thresholds", decimal.NewFromInt(50000), 2},
		{"just below second threshold", decimal.NewFromFloat(99999.99), 2},
		{"exactly second threshold", decimal.NewFromInt(100000), 3},
		{"far above second threshold", decimal.NewFromInt(5000000), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.RequiredSignatures(tt.amount))
		})
	}

	t.Run("monotonically non-decreasing", func(t *testing.T) {
		prev := 0
		for amount := int64(100); amount <= 200000; amount += 100 {
			got := policy.RequiredSignatures(decimal.NewFromInt(amount))
			require.GreaterOrEqual(t, got, prev, "amount %d", amount)
			prev = got
		}
	})

	t.Run("stable across repeated evaluation", func(t *testing.T) {
		amount := decimal.NewFromFloat(42317.50)
		first := policy.RequiredSignatures(amount)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, policy.RequiredSignatures(amount))
		}
	})
}
