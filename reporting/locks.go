package reporting

import "sync"

// =============================================================================
// VESSEL LOCKS - Serialize state-machine transitions per vessel
// =============================================================================

// VesselLocks hands out one mutex per vessel. Submit, Approve and Reject
// hold the vessel's lock for their whole read-check-write sequence, so the
// admission gate and baseline lookup cannot race with another operation on
// the same vessel. Different vessels proceed in parallel.
type VesselLocks struct {
	mu    sync.Mutex
	locks map[VesselID]*sync.Mutex
}

func NewVesselLocks() *VesselLocks {
	return &VesselLocks{locks: make(map[VesselID]*sync.Mutex)}
}

// Lock acquires the vessel's mutex and returns the matching unlock func.
func (vl *VesselLocks) Lock(id VesselID) func() {
	vl.mu.Lock()
	m, ok := vl.locks[id]
	if !ok {
		m = &sync.Mutex{}
		vl.locks[id] = m
	}
	vl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
