package engine

import "math"

// priceStep is the coarse round-number step the instrument trades around.
// Entry triggers always land on a multiple of it.
const priceStep = 100.0

// CeiledGap converts a percentage of price into an absolute offset rounded
// up to the next multiple of priceStep. Rounding up keeps the effective gap
// at least as wide as the nominal percentage, so legs never fire early.
// A zero percentage yields zero.
func CeiledGap(price, percentage float64) float64 {
	raw := price * percentage / 100
	return math.Ceil(raw/priceStep) * priceStep
}
