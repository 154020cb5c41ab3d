package core

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// StatusType covers both run and step lifecycles. SKIPPED applies to
// steps only.
type StatusType string

const (
	StatusPending StatusType = "PENDING"
	StatusRunning StatusType = "RUNNING"
	StatusSuccess StatusType = "SUCCESS"
	StatusFailed  StatusType = "FAILED"
	StatusSkipped StatusType = "SKIPPED"
)

func (s StatusType) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible.
func (s StatusType) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// HTTP methods
// -----------------------------------------------------------------------------

const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)
