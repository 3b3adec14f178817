package events

const (
	// KindSessionStateChanged identifies a lifecycle state transition.
	KindSessionStateChanged Kind = "session.state_changed"
	// KindSessionCompleted identifies an accepted submit.
	KindSessionCompleted Kind = "session.completed"
	// KindSessionFailed identifies a recoverable session failure.
	KindSessionFailed Kind = "session.failed"
)

// SessionStateChanged carries a lifecycle transition.
type SessionStateChanged struct {
	Base
	SessionID string
	From      string
	To        string
}

// NewSessionStateChanged creates a session state changed event.
func NewSessionStateChanged(sessionID, from, to string) SessionStateChanged {
	return SessionStateChanged{Base: NewBase(KindSessionStateChanged), SessionID: sessionID, From: from, To: to}
}

// SessionCompleted marks an accepted submit.
type SessionCompleted struct {
	Base
	SessionID string
	Answered  int
	Total     int
}

// NewSessionCompleted creates a session completed event.
func NewSessionCompleted(sessionID string, answered, total int) SessionCompleted {
	return SessionCompleted{Base: NewBase(KindSessionCompleted), SessionID: sessionID, Answered: answered, Total: total}
}

// SessionFailed carries a recoverable session failure.
type SessionFailed struct {
	Base
	SessionID string
	Err       error
}

// NewSessionFailed creates a session failed event.
func NewSessionFailed(sessionID string, err error) SessionFailed {
	return SessionFailed{Base: NewBase(KindSessionFailed), SessionID: sessionID, Err: err}
}
