/*

This file contains the checked fixed-point arithmetic helpers. All pool math
runs through these: multiplication is rejected before it can exceed the
256-bit limit of math.Int (which would otherwise panic), division by a
non-positive divisor is rejected, and subtraction that would go negative is
either rejected or clamped to zero depending on what the caller needs.

Division truncates. That matches the integer semantics the accounting rules
are specified against.

*/

package engine

import (
	"fmt"

	"cosmossdk.io/math"
)

// maxIntBits is the width limit enforced by cosmossdk.io/math.Int.
const maxIntBits = 256

// checkedMul multiplies a*b, rejecting nil operands and products that would
// exceed the math.Int width.
func checkedMul(a, b math.Int) (math.Int, error) {
	if a.IsNil() || b.IsNil() {
		return math.Int{}, fmt.Errorf("%w: nil operand in multiplication", ErrArithmeticFault)
	}
	// BitLen(a*b) <= BitLen(a)+BitLen(b), so this can only over-reject by
	// one bit, never under-reject.
	if a.BigInt().BitLen()+b.BigInt().BitLen() > maxIntBits-1 {
		return math.Int{}, fmt.Errorf("%w: multiplication overflow (%s * %s)", ErrArithmeticFault, a, b)
	}
	return a.Mul(b), nil
}

// checkedQuo divides a/b with truncation, rejecting nil operands and
// non-positive divisors.
func checkedQuo(a, b math.Int) (math.Int, error) {
	if a.IsNil() || b.IsNil() {
		return math.Int{}, fmt.Errorf("%w: nil operand in division", ErrArithmeticFault)
	}
	if !b.IsPositive() {
		return math.Int{}, fmt.Errorf("%w: division by non-positive divisor %s", ErrArithmeticFault, b)
	}
	return a.Quo(b), nil
}

// mulDiv computes a*b/denom with a full-width intermediate product.
func mulDiv(a, b, denom math.Int) (math.Int, error) {
	product, err := checkedMul(a, b)
	if err != nil {
		return math.Int{}, err
	}
	return checkedQuo(product, denom)
}

// checkedAdd adds a+b, rejecting nil operands and sums exceeding the
// math.Int width.
func checkedAdd(a, b math.Int) (math.Int, error) {
	if a.IsNil() || b.IsNil() {
		return math.Int{}, fmt.Errorf("%w: nil operand in addition", ErrArithmeticFault)
	}
	if a.BigInt().BitLen() >= maxIntBits-1 || b.BigInt().BitLen() >= maxIntBits-1 {
		return math.Int{}, fmt.Errorf("%w: addition overflow (%s + %s)", ErrArithmeticFault, a, b)
	}
	return a.Add(b), nil
}

// checkedSub subtracts a-b, rejecting results that would go negative.
func checkedSub(a, b math.Int) (math.Int, error) {
	if a.IsNil() || b.IsNil() {
		return math.Int{}, fmt.Errorf("%w: nil operand in subtraction", ErrArithmeticFault)
	}
	if a.LT(b) {
		return math.Int{}, fmt.Errorf("%w: subtraction underflow (%s - %s)", ErrArithmeticFault, a, b)
	}
	return a.Sub(b), nil
}

// clampedSub subtracts a-b, flooring at zero. Used for bound headroom where
// an already-breached bound must read as zero capacity, not as a fault.
func clampedSub(a, b math.Int) (math.Int, error) {
	if a.IsNil() || b.IsNil() {
		return math.Int{}, fmt.Errorf("%w: nil operand in subtraction", ErrArithmeticFault)
	}
	if a.LT(b) {
		return math.ZeroInt(), nil
	}
	return a.Sub(b), nil
}

// minInt returns the smaller of a and b.
func minInt(a, b math.Int) math.Int {
	if a.LT(b) {
		return a
	}
	return b
}
