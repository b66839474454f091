package stream

// State is the connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	// Authenticating is entered while a rejected handshake renews its token.
	Authenticating
	// Connected means the socket is open and the outbound queue is being flushed.
	Connected
	Listening
	// Closing is absorbing: once entered the connection never reconnects.
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Authenticating:
		return "authenticating"
	case Connected:
		return "connected"
	case Listening:
		return "listening"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}
