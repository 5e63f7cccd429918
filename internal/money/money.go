// Package money provides fixed-point decimal arithmetic for cash and price
// values, avoiding the accumulation error of binary floating point.
package money

import (
	"fmt"
	"math"
)

// Cents represents a monetary amount as an integer number of cents.
// All ledger arithmetic (balances, fills, average cost) happens in Cents;
// float64 is only used at the JSON/API boundary.
type Cents int64

// FromFloat converts a float64 dollar amount to Cents, rounding to the
// nearest cent.
func FromFloat(dollars float64) Cents {
	return Cents(math.Round(dollars * 100))
}

// ToFloat converts Cents back to a float64 dollar amount.
func (c Cents) ToFloat() float64 {
	return float64(c) / 100
}

// Add returns c + other.
func (c Cents) Add(other Cents) Cents {
	return c + other
}

// Sub returns c - other.
func (c Cents) Sub(other Cents) Cents {
	return c - other
}

// MulQty returns the value of qty shares at price c, rounded to the
// nearest cent.
func (c Cents) MulQty(qty int64) Cents {
	return Cents(math.Round(float64(c) * float64(qty)))
}

// Negate returns -c.
func (c Cents) Negate() Cents {
	return -c
}

// IsNegative reports whether c < 0.
func (c Cents) IsNegative() bool {
	return c < 0
}

// String renders Cents as a "1234.56" decimal string.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// WeightedAveragePrice computes the weighted-average cost basis of
// combining an existing (q1, p1) lot with a new (q2, p2) fill, per the
// invariant average = (q1*p1 + q2*p2) / (q1+q2).
func WeightedAveragePrice(q1 int64, p1 Cents, q2 int64, p2 Cents) Cents {
	totalQty := q1 + q2
	if totalQty == 0 {
		return 0
	}
	totalCost := p1.MulQty(q1) + p2.MulQty(q2)
	return Cents(math.Round(float64(totalCost) / float64(totalQty)))
}
