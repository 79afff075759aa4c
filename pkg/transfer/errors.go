package transfer

import (
	"fmt"

	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

// ConflictError reports destination state that a transfer would clobber.
// It is fatal for a non-empty destination bank and advisory as a Hazard.
type ConflictError struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict at %s: %s", e.Path, e.Reason)
}

// CapacityError reports that the destination project has too few free slots
type CapacityError struct {
	Class  octatrack.SlotClass
	Needed int
	Free   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough free %s slots: need %d, %d free", e.Class, e.Needed, e.Free)
}
