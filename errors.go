package zsend

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// ErrorKind is the closed set of failure classes a transfer can report.
type ErrorKind uint8

const (
	kindNone ErrorKind = iota
	// WouldBlock means the socket is not writable now; retry after readiness.
	WouldBlock
	// Interrupted means the call was interrupted by a signal; retry.
	Interrupted
	// ConnectionReset means the peer is gone; abandon the connection.
	ConnectionReset
	// BadDescriptor means the source or socket descriptor is unusable;
	// abandon the transfer, the connection may survive.
	BadDescriptor
	// HardFailure is any fatal condition not covered above.
	HardFailure
	// Unsupported tells the caller to permanently fall back to buffered
	// transmission for the rest of the response.
	Unsupported
)

func (k ErrorKind) String() string {
	switch k {
	case kindNone:
		return "none"
	case WouldBlock:
		return "would-block"
	case Interrupted:
		return "interrupted"
	case ConnectionReset:
		return "connection-reset"
	case BadDescriptor:
		return "bad-descriptor"
	case HardFailure:
		return "hard-failure"
	case Unsupported:
		return "unsupported"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Temporary reports whether the caller should retry the same call later.
func (k ErrorKind) Temporary() bool {
	return k == WouldBlock || k == Interrupted
}

// Error is the error form of a failed transfer.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		if e.Op == "" {
			return "zsend: " + e.Kind.String()
		}
		return fmt.Sprintf("zsend: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("zsend: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, zsend.ErrWouldBlock).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrWouldBlock      = &Error{Kind: WouldBlock}
	ErrInterrupted     = &Error{Kind: Interrupted}
	ErrConnectionReset = &Error{Kind: ConnectionReset}
	ErrBadDescriptor   = &Error{Kind: BadDescriptor}
	ErrHardFailure     = &Error{Kind: HardFailure}
	ErrUnsupported     = &Error{Kind: Unsupported}
)

// Signals a TLSSession returns from Send or Uncork when the record layer
// cannot make progress right now.
var (
	ErrTLSAgain       = errors.New("tls: record layer would block")
	ErrTLSInterrupted = errors.New("tls: record layer interrupted")
)

// kindError tags a raw signal with the kind a platform mechanism decided
// for it, for signals whose meaning depends on the call that produced them
// (EINVAL from sendfile on Linux means "fd not suitable", not a bug).
type kindError struct {
	kind ErrorKind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() error { return e.err }

func asUnsupported(err error) error { return &kindError{kind: Unsupported, err: err} }

func asBadDescriptor(err error) error { return &kindError{kind: BadDescriptor, err: err} }

// Classify maps a raw OS, network or TLS failure signal to an ErrorKind.
// It is total: unrecognized signals, and nil, are HardFailure.
func Classify(err error) ErrorKind {
	if err == nil {
		return HardFailure
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	var ze *Error
	if errors.As(err, &ze) && ze.Kind != kindNone {
		return ze.Kind
	}
	switch {
	case errors.Is(err, ErrTLSAgain):
		return WouldBlock
	case errors.Is(err, ErrTLSInterrupted):
		return Interrupted
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return classifyErrno(errno)
	}
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		return WouldBlock
	case errors.Is(err, net.ErrClosed), errors.Is(err, os.ErrClosed):
		return BadDescriptor
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe):
		return ConnectionReset
	case errors.Is(err, errors.ErrUnsupported):
		return Unsupported
	}
	return HardFailure
}

func classifyErrno(errno syscall.Errno) ErrorKind {
	// EAGAIN/EWOULDBLOCK and ENOTSUP/EOPNOTSUPP share values on some
	// platforms, so compare instead of listing them as switch cases.
	switch {
	case errno == syscall.EAGAIN || errno == syscall.EWOULDBLOCK || errno == syscall.EBUSY:
		return WouldBlock
	case errno == syscall.EINTR:
		return Interrupted
	case errno == syscall.ECONNRESET || errno == syscall.EPIPE ||
		errno == syscall.ENOTCONN || errno == syscall.ECONNABORTED:
		return ConnectionReset
	case errno == syscall.EBADF:
		return BadDescriptor
	case errno == syscall.ENOTSUP || errno == syscall.EOPNOTSUPP ||
		errno == syscall.ENOSYS || errno == syscall.EAFNOSUPPORT:
		return Unsupported
	}
	return HardFailure
}

// Result is the outcome of one transmission call.
type Result struct {
	// N is the number of bytes handed to the transport. It is never less
	// than what was actually delivered, partial zero-copy included, and
	// may be non-zero on failure.
	N int64
	// Kind is zero when the call sent bytes and a failure class otherwise.
	Kind ErrorKind
	// HeaderOnly is set by SendDual when vectored writes are unavailable:
	// only header bytes were sent and the body must be resent separately.
	HeaderOnly bool
	// Cause is the raw signal behind Kind, if any.
	Cause error
}

func sent(n int64) Result { return Result{N: n} }

func failed(kind ErrorKind, err error) Result { return Result{Kind: kind, Cause: err} }

// moved reports a failure that came after n bytes were already handed
// to the transport.
func moved(n int64, kind ErrorKind, err error) Result {
	if n < 0 {
		n = 0
	}
	return Result{N: n, Kind: kind, Cause: err}
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Kind == kindNone }

// Err returns nil on success and an *Error otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Kind: r.Kind, Op: "send", Err: r.Cause}
}
