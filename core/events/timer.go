package events

const (
	// KindElapsedTicked identifies a session clock tick.
	KindElapsedTicked Kind = "timer.elapsed_ticked"
	// KindCountdownTicked identifies a per-question countdown tick.
	KindCountdownTicked Kind = "timer.countdown_ticked"
	// KindCountdownExpired identifies a countdown reaching zero.
	KindCountdownExpired Kind = "timer.countdown_expired"
)

// ElapsedTicked carries the session clock value.
type ElapsedTicked struct {
	Base
	Seconds int
}

// NewElapsedTicked creates an elapsed ticked event.
func NewElapsedTicked(seconds int) ElapsedTicked {
	return ElapsedTicked{Base: NewBase(KindElapsedTicked), Seconds: seconds}
}

// CountdownTicked carries the remaining seconds of a countdown.
type CountdownTicked struct {
	Base
	Key       string
	Remaining int
}

// NewCountdownTicked creates a countdown ticked event.
func NewCountdownTicked(key string, remaining int) CountdownTicked {
	return CountdownTicked{Base: NewBase(KindCountdownTicked), Key: key, Remaining: remaining}
}

// CountdownExpired marks a countdown reaching zero.
type CountdownExpired struct {
	Base
	Key string
}

// NewCountdownExpired creates a countdown expired event.
func NewCountdownExpired(key string) CountdownExpired {
	return CountdownExpired{Base: NewBase(KindCountdownExpired), Key: key}
}
