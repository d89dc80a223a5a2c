// Package safe provides overflow-checked arithmetic for ledger amounts.
package safe

import (
	"errors"
	"math/bits"
)

var (
	// ErrOverflow is returned when an addition or multiplication exceeds uint64.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrUnderflow is returned when a subtraction would go below zero.
	ErrUnderflow = errors.New("arithmetic underflow")
)

// SafeAdd returns a+b or ErrOverflow.
func SafeAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// SafeSub returns a-b or ErrUnderflow.
func SafeSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// SafeMul returns a*b or ErrOverflow.
func SafeMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}
