package payment

import (
	"github.com/shopspring/decimal"

	"github.com/treasury/backend/internal/domain/shared"
)

// SignatureTier maps a lower amount bound to a required signature count.
// A payment whose amount is >= Threshold requires at least Signatures.
type SignatureTier struct {
	Threshold  decimal.Decimal
	Signatures int
}

// SignaturePolicy is a pure, deterministic mapping from payment amount to
// the number of required approvals. It is evaluated exactly once per
// payment, at submission time; the result is frozen on the payment and
// never re-evaluated, even if the policy is reconfigured later.
type SignaturePolicy struct {
	baseSignatures int
	tiers          []SignatureTier // Ascending by threshold
}

// NewSignaturePolicy creates a policy from ascending tiers. baseSignatures
// applies below the first threshold and must be >= 1. Tiers must be strictly
// ascending in both threshold and signature count so the policy is
// monotonically non-decreasing.
func NewSignaturePolicy(baseSignatures int, tiers []SignatureTier) (*SignaturePolicy, error) {
	if baseSignatures < 1 {
		return nil, shared.NewDomainError("INVALID_POLICY", "Base signature count must be at least 1")
	}
	prevSignatures := baseSignatures
	var prevThreshold decimal.Decimal
	for i, tier := range tiers {
		if tier.Threshold.IsNegative() || tier.Threshold.IsZero() {
			return nil, shared.NewDomainError("INVALID_POLICY", "Tier thresholds must be positive")
		}
		if i > 0 && tier.Threshold.LessThanOrEqual(prevThreshold) {
			return nil, shared.NewDomainError("INVALID_POLICY", "Tier thresholds must be strictly ascending")
		}
		if tier.Signatures < prevSignatures {
			return nil, shared.NewDomainError("INVALID_POLICY", "Signature counts must be non-decreasing")
		}
		prevThreshold = tier.Threshold
		prevSignatures = tier.Signatures
	}
	return &SignaturePolicy{
		baseSignatures: baseSignatures,
		tiers:          tiers,
	}, nil
}

// DefaultSignaturePolicy returns the stock two-threshold policy:
// amount < t1 needs 1 signature, t1 <= amount < t2 needs 2, amount >= t2 needs 3.
func DefaultSignaturePolicy(t1, t2 decimal.Decimal) (*SignaturePolicy, error) {
	return NewSignaturePolicy(1, []SignatureTier{
		{Threshold: t1, Signatures: 2},
		{Threshold: t2, Signatures: 3},
	})
}

// RequiredSignatures returns the signature count for the given amount.
// Stable across repeated calls and monotonically non-decreasing in amount.
func (p *SignaturePolicy) RequiredSignatures(amount decimal.Decimal) int {
	required := p.baseSignatures
	for _, tier := range p.tiers {
		if amount.GreaterThanOrEqual(tier.Threshold) {
			required = tier.Signatures
		} else {
			break
		}
	}
	return required
}
