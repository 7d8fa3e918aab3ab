// Package gate holds the checks that run before a command handler: access
// (maintenance mode, owner-only commands) and per-user cooldowns.
package gate

import "sync"

// OwnerCategory is the command category restricted to the bot owner.
const OwnerCategory = "owner"

// DenyReason says why the access gate refused a dispatch.
type DenyReason int

const (
	// NotDenied is the reason carried by an Allow decision.
	NotDenied DenyReason = iota
	MaintenanceMode
	OwnerOnly
)

func (r DenyReason) String() string {
	switch r {
	case MaintenanceMode:
		return "maintenance_mode"
	case OwnerOnly:
		return "owner_only"
	default:
		return "none"
	}
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	// Message is the maintenance reason when Reason is MaintenanceMode.
	Message string
}

// Allow is the decision that lets a dispatch through.
var Allow = Decision{Allowed: true}

// Snapshot is a point-in-time copy of AccessState.
type Snapshot struct {
	MaintenanceEnabled bool
	MaintenanceReason  string
	OwnerID            string
}

// Evaluate applies maintenance mode first, then the owner-only restriction.
// The owner passes both.
func Evaluate(userID, category string, s Snapshot) Decision {
	if userID == s.OwnerID {
		return Allow
	}
	if s.MaintenanceEnabled {
		return Decision{Reason: MaintenanceMode, Message: s.MaintenanceReason}
	}
	if category == OwnerCategory {
		return Decision{Reason: OwnerOnly}
	}
	return Allow
}

// AccessState is the process-wide maintenance flag and owner identity.
type AccessState struct {
	mu                 sync.RWMutex
	maintenanceEnabled bool
	maintenanceReason  string
	ownerID            string
}

func NewAccessState(ownerID string) *AccessState {
	return &AccessState{ownerID: ownerID}
}

// SetMaintenance toggles maintenance mode. The reason is cleared when disabling.
func (a *AccessState) SetMaintenance(enabled bool, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.maintenanceEnabled = enabled
	if enabled {
		a.maintenanceReason = reason
	} else {
		a.maintenanceReason = ""
	}
}

func (a *AccessState) OwnerID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ownerID
}

func (a *AccessState) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		MaintenanceEnabled: a.maintenanceEnabled,
		MaintenanceReason:  a.maintenanceReason,
		OwnerID:            a.ownerID,
	}
}

// Evaluate checks userID against the current state.
func (a *AccessState) Evaluate(userID, category string) Decision {
	return Evaluate(userID, category, a.Snapshot())
}
