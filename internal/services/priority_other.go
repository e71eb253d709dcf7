//go:build !linux

package services

// NewPriorityBooster returns a booster that leaves scheduling untouched on
// platforms without per-thread nice values.
func NewPriorityBooster() PriorityBooster {
	return noopBooster{}
}
