package pipeline

import (
	"math"
	"strconv"
)

// Demand is a count of items a consumer has authorized a producer to deliver.
// It is never negative.
type Demand int64

// Unlimited is the unbounded demand sentinel. It absorbs additions and is not
// reduced by deliveries.
const Unlimited Demand = math.MaxInt64

// Add returns d increased by n, saturating at Unlimited. Non-positive n leaves
// d unchanged.
func (d Demand) Add(n Demand) Demand {
	if n <= 0 {
		return d
	}
	if d == Unlimited || n == Unlimited || d > Unlimited-n {
		return Unlimited
	}
	return d + n
}

// Dec returns d reduced by one delivery.
func (d Demand) Dec() Demand {
	switch {
	case d == Unlimited:
		return d
	case d <= 0:
		return 0
	}
	return d - 1
}

// Positive reports whether at least one delivery is authorized.
func (d Demand) Positive() bool { return d > 0 }

// IsUnlimited reports whether d is the unbounded sentinel.
func (d Demand) IsUnlimited() bool { return d == Unlimited }

func (d Demand) String() string {
	if d == Unlimited {
		return "unlimited"
	}
	return strconv.FormatInt(int64(d), 10)
}
