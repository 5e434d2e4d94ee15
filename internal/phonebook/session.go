package phonebook

// Status is the auth state derived from the session flags.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusAuthenticated
	StatusInvalid
	StatusInvalidAfterRetry
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusInvalid:
		return "invalid"
	case StatusInvalidAfterRetry:
		return "invalid after retry"
	}
	return "unauthenticated"
}

// Session is the auth part of the controller state.
type Session struct {
	AuthKey string
	// Valid is true only after the last completed list fetch succeeded.
	Valid bool
	// LoadAttempted is set by LoadKey and never cleared.
	LoadAttempted bool
	// LastAttemptFailed is raised by a failed fetch once LoadAttempted is set,
	// and cleared by the next successful fetch.
	LastAttemptFailed bool

	fetched bool
}

func (s Session) Status() Status {
	switch {
	case s.Valid:
		return StatusAuthenticated
	case s.LastAttemptFailed:
		return StatusInvalidAfterRetry
	case s.fetched:
		return StatusInvalid
	}
	return StatusUnauthenticated
}
