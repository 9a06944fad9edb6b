package checkout

import (
	"strconv"

	"github.com/princinho/storefront/cart"
)

type Step int

const (
	StepCart Step = iota + 1
	StepShipping
	StepConfirm
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepCart:
		return "cart"
	case StepShipping:
		return "shipping"
	case StepConfirm:
		return "confirm"
	case StepSuccess:
		return "success"
	}
	return "unknown"
}

// ParseStep reads the ?step= query value; anything unrecognised means the cart step.
func ParseStep(v string) Step {
	n, err := strconv.Atoi(v)
	if err != nil || n < int(StepCart) || n > int(StepSuccess) {
		return StepCart
	}
	return Step(n)
}

// Next is the step after s; Success is terminal.
func (s Step) Next() Step {
	if s >= StepSuccess {
		return StepSuccess
	}
	return s + 1
}

// ResolveStep clamps a requested step to what the stored cart allows: an
// empty cart stays on Cart, a cart without shipping details cannot pass
// Shipping. Success is only ever reached by confirming an order.
func ResolveStep(requested Step, c *cart.Cart) Step {
	limit := StepConfirm
	switch {
	case c.Empty():
		limit = StepCart
	case c.Shipping == nil || validateShipping(*c.Shipping) != nil:
		limit = StepShipping
	}
	if requested < StepCart {
		requested = StepCart
	}
	if requested > limit {
		return limit
	}
	return requested
}
