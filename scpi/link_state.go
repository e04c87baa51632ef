package scpi

// LinkState represents the connection state of a Link.
type LinkState int32

const (
	// NotConnectedState indicates that the link holds no open connection.
	NotConnectedState LinkState = iota
	// ConnectedState indicates that the link holds an open TCP connection
	// to the instrument.
	ConnectedState
)

// String returns a human-readable representation of the link state.
func (s LinkState) String() string {
	switch s {
	case NotConnectedState:
		return "not-connected"
	case ConnectedState:
		return "connected"
	default:
		return "unknown"
	}
}
