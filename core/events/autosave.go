package events

import "time"

const (
	// KindAutosaveStarted identifies a draft save request.
	KindAutosaveStarted Kind = "autosave.started"
	// KindAutosaveSaved identifies an applied save response.
	KindAutosaveSaved Kind = "autosave.saved"
	// KindAutosaveDiscarded identifies a stale save response.
	KindAutosaveDiscarded Kind = "autosave.discarded_stale"
	// KindAutosaveFailed identifies a failed save.
	KindAutosaveFailed Kind = "autosave.failed"
)

// AutosaveStarted marks a save request leaving for the backend.
type AutosaveStarted struct {
	Base
	PacketID string
}

// NewAutosaveStarted creates an autosave started event.
func NewAutosaveStarted(packetID string) AutosaveStarted {
	return AutosaveStarted{Base: NewBase(KindAutosaveStarted), PacketID: packetID}
}

// AutosaveSaved marks a response that was applied locally.
type AutosaveSaved struct {
	Base
	PacketID string
	SavedAt  time.Time
}

// NewAutosaveSaved creates an autosave saved event.
func NewAutosaveSaved(packetID string, savedAt time.Time) AutosaveSaved {
	return AutosaveSaved{Base: NewBase(KindAutosaveSaved), PacketID: packetID, SavedAt: savedAt}
}

// AutosaveDiscarded marks a response dropped by the staleness guard.
type AutosaveDiscarded struct {
	Base
	PacketID string
}

// NewAutosaveDiscarded creates an autosave discarded event.
func NewAutosaveDiscarded(packetID string) AutosaveDiscarded {
	return AutosaveDiscarded{Base: NewBase(KindAutosaveDiscarded), PacketID: packetID}
}

// AutosaveFailed carries a failed save and the current failure streak.
type AutosaveFailed struct {
	Base
	PacketID            string
	Err                 error
	ConsecutiveFailures int
}

// NewAutosaveFailed creates an autosave failed event.
func NewAutosaveFailed(packetID string, err error, consecutiveFailures int) AutosaveFailed {
	return AutosaveFailed{
		Base:                NewBase(KindAutosaveFailed),
		PacketID:            packetID,
		Err:                 err,
		ConsecutiveFailures: consecutiveFailures,
	}
}
