package reconcile

import "fmt"

// MergeError means the resolver answered with the wrong number of estimates
type MergeError struct {
	Slot     string
	Expected int
	Got      int
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("slot %q: expected %d estimates, got %d", e.Slot, e.Expected, e.Got)
}
