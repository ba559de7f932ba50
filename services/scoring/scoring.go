// Package scoring computes the value score used to rank deals on the
// hot list. Larger is better; no upper bound is enforced, consumers
// that need a bounded scale normalize on their side.
package scoring

// Epsilon guards the division when a target's reputation is recorded
// as zero.
const Epsilon = 1e-6

// Value returns (discount * durationDays) / max(reputation, Epsilon).
// Deterministic, pure function of its three inputs.
func Value(discountValue float64, durationDays int, reputation float64) float64 {
	if reputation < Epsilon {
		reputation = Epsilon
	}
	return discountValue * float64(durationDays) / reputation
}
