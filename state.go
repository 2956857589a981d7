package zsend

// CorkState is the buffering state last applied to a connection.
type CorkState uint8

const (
	Uncorked CorkState = iota
	Corked
)

func (s CorkState) String() string {
	if s == Corked {
		return "corked"
	}
	return "uncorked"
}

// CorkIntent is what a caller wants from the socket for one call.
type CorkIntent uint8

const (
	// NoCork: bytes should leave immediately.
	NoCork CorkIntent = iota
	// MayCork: more data follows soon; let the stack coalesce.
	MayCork
	// HeaderCork: cork only when the payload size is near one MSS, so a
	// header does not go out alone in a nearly full segment.
	HeaderCork
)

func (i CorkIntent) String() string {
	switch i {
	case NoCork:
		return "no-cork"
	case MayCork:
		return "may-cork"
	case HeaderCork:
		return "header-cork"
	}
	return "unknown"
}

// SocketState is the per-connection transmission state. It is owned by a
// single connection and must only be used by one goroutine at a time; the
// zsend package never locks it.
type SocketState struct {
	fd   int
	cork CorkState
	tls  TLSSession

	// refused is set when the kernel rejected the transition to
	// refusedWant; it is not retried until the wanted state changes.
	refused     bool
	refusedWant bool
	// moreHeld is set after a send carrying MSG_MORE: the kernel may be
	// holding a partial segment although the socket is not corked.
	moreHeld bool
}

// NewSocketState returns the state of a freshly accepted plain socket.
func NewSocketState(fd int) *SocketState {
	return &SocketState{fd: fd}
}

// NewTLSSocketState returns the state of a socket carrying an established
// TLS session. All writes go through the session's record layer.
func NewTLSSocketState(fd int, session TLSSession) *SocketState {
	return &SocketState{fd: fd, tls: session}
}

func (s *SocketState) Fd() int { return s.fd }

func (s *SocketState) Cork() CorkState { return s.cork }

func (s *SocketState) Corked() bool { return s.cork == Corked }

func (s *SocketState) UsingTLS() bool { return s.tls != nil }

func (s *SocketState) Session() TLSSession { return s.tls }
