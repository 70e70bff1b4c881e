package model

// Status is the backend connectivity derived from the health probe
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusOnline   Status = "online"
	StatusDegraded Status = "degraded"
	StatusOffline  Status = "offline"
)

// Label returns the badge text for the status
func (s Status) Label() string {
	switch s {
	case StatusOnline:
		return "Connected"
	case StatusDegraded:
		return "Degraded"
	case StatusOffline:
		return "Offline"
	default:
		return "Checking"
	}
}

// Icon returns the badge dot for the status
func (s Status) Icon() string {
	switch s {
	case StatusOnline, StatusDegraded:
		return "●"
	case StatusOffline:
		return "○"
	default:
		return "◌"
	}
}
