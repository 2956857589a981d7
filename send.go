package zsend

import (
	"errors"
	"io"
)

const defaultBufferSize = 64 * 1024

var (
	errZeroCopyTLS    = asUnsupported(errors.New("zero-copy is not available under TLS"))
	errNoZeroCopy     = asUnsupported(errors.New("platform has no zero-copy file transfer"))
	errOffsetRange    = asUnsupported(errors.New("file offset beyond zero-copy range"))
	errFileTruncated  = asBadDescriptor(io.ErrUnexpectedEOF)
	errUnknownRequest = errors.New("unknown transfer request")
)

// Request is one of SingleBuffer, DualBuffer or FileRegion.
type Request interface {
	request()
}

type SingleBuffer struct {
	Data []byte
}

type DualBuffer struct {
	Header []byte
	Body   []byte
}

// FileRegion is a byte range of a file-backed descriptor.
type FileRegion struct {
	FD     int
	Offset uint64
	Length uint64
}

func (SingleBuffer) request() {}
func (DualBuffer) request()   {}
func (FileRegion) request()   {}

// Sender implements the transmission primitives for one class of
// connections. It is safe for concurrent use by many connections; each
// SocketState must only be used by one goroutine at a time.
type Sender struct {
	caps    Capability
	sys     Syscalls
	ctl     *Controller
	files   FileRegionTransfer
	model   ExecModel
	metrics *Metrics
	bufSize int
}

func NewSender(opts ...Option) *Sender {
	o := &options{
		model:      EventDriven,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sys == nil {
		o.sys = SystemCalls()
	}
	var caps Capability
	if o.capability != nil {
		caps = *o.capability
	} else {
		caps = DetectCapability()
	}
	return &Sender{
		caps:    caps,
		sys:     o.sys,
		ctl:     NewController(caps, o.sys, o.metrics),
		files:   NewFileRegionTransfer(caps.ZeroCopy, o.sys),
		model:   o.model,
		metrics: o.metrics,
		bufSize: o.bufferSize,
	}
}

func (s *Sender) Capability() Capability { return s.caps }

func (s *Sender) Controller() *Controller { return s.ctl }

// Transfer dispatches req to the matching primitive. File regions ignore
// intent: they always flush once the chunk is out.
func (s *Sender) Transfer(st *SocketState, req Request, intent CorkIntent) Result {
	switch r := req.(type) {
	case SingleBuffer:
		return s.SendSingle(st, r.Data, intent)
	case DualBuffer:
		return s.SendDual(st, r.Header, r.Body, intent)
	case FileRegion:
		return s.SendFileRegion(st, r)
	}
	return failed(Classify(errUnknownRequest), errUnknownRequest)
}

// Flush uncorks st; call it before closing a socket that may be corked.
func (s *Sender) Flush(st *SocketState) error {
	return s.ctl.Flush(st)
}

// SendSingle writes p once. Payloads larger than one send call may carry
// are truncated; the result reports what was taken.
func (s *Sender) SendSingle(st *SocketState, p []byte, intent CorkIntent) Result {
	r := s.sendSingle(st, p, intent)
	s.metrics.observe("single", r)
	return r
}

func (s *Sender) sendSingle(st *SocketState, p []byte, intent CorkIntent) Result {
	if len(p) > s.caps.MaxSendSize {
		p = p[:s.caps.MaxSendSize]
	}
	rc := s.ctl.ReconcileBefore(st, s.ctl.WantCork(intent, len(p)))
	var n int
	var err error
	if st.tls != nil {
		n, err = st.tls.Send(p)
		if err != nil {
			return moved(int64(n), sessionKind(err), err)
		}
	} else {
		n, err = s.sys.Send(st.fd, p, s.sendFlags(rc))
		if err != nil {
			return moved(int64(n), Classify(err), err)
		}
		if rc.UseMore {
			st.moreHeld = true
		}
	}
	s.ctl.ReconcileAfter(st, rc, false)
	return sent(int64(n))
}

// SendDual writes header and body with one vectored call. Without vectored
// writes, or under TLS, only the header is sent and the result has
// HeaderOnly set: the caller must send the body itself. A header and body
// are never submitted as two separate writes here, since a failure of the
// second would be lost behind the success of the first.
func (s *Sender) SendDual(st *SocketState, header, body []byte, intent CorkIntent) Result {
	r := s.sendDual(st, header, body, intent)
	s.metrics.observe("dual", r)
	return r
}

func (s *Sender) sendDual(st *SocketState, header, body []byte, intent CorkIntent) Result {
	if len(body) == 0 {
		return s.sendSingle(st, header, intent)
	}
	if !s.caps.Vectored || st.tls != nil {
		r := s.sendSingle(st, header, HeaderCork)
		r.HeaderOnly = r.OK()
		return r
	}
	limit := s.caps.MaxSendSize
	switch {
	case len(header) >= limit:
		header, body = header[:limit], body[:0]
	case len(header)+len(body) > limit:
		body = body[:limit-len(header)]
	}
	total := len(header) + len(body)

	want := s.ctl.WantCork(intent, len(header))
	rc := Reconcile{Want: want}
	if want {
		rc = s.ctl.ReconcileBefore(st, want)
	}
	// An uncork waits until the whole vector is out, so header and body
	// leave together with anything corked by earlier calls.
	n, err := s.sys.SendBuffers(st.fd, [][]byte{header, body}, s.sendFlags(rc))
	if err != nil {
		return moved(int64(n), Classify(err), err)
	}
	if rc.UseMore {
		st.moreHeld = true
	}
	if n == total {
		s.ctl.ReconcileAfter(st, rc, false)
	}
	return sent(int64(n))
}

// SendFileRegion transfers at most one chunk of region from the file to
// the socket without copying through user space. The chunk bound depends
// on the execution model and keeps one connection from monopolizing a
// shared context: the caller re-polls between chunks.
//
// Unsupported is a permanent instruction: the caller must send the rest
// of this response through SendFileBuffered.
func (s *Sender) SendFileRegion(st *SocketState, region FileRegion) Result {
	r := s.sendFileRegion(st, region)
	s.metrics.observe("file", r)
	if r.Kind == Unsupported {
		s.metrics.downgrade()
	}
	return r
}

func (s *Sender) sendFileRegion(st *SocketState, region FileRegion) Result {
	switch {
	case st.tls != nil:
		return failed(Classify(errZeroCopyTLS), errZeroCopyTLS)
	case s.files == nil:
		return failed(Classify(errNoZeroCopy), errNoZeroCopy)
	case region.Offset > s.caps.MaxFileOffset:
		return failed(Classify(errOffsetRange), errOffsetRange)
	case region.Length == 0:
		return sent(0)
	}
	size := uint64(s.caps.ChunkFor(s.model))
	if region.Length < size {
		size = region.Length
	}
	n, err := s.files.TransferFile(st.fd, region.FD, int64(region.Offset), int(size))
	if err != nil {
		kind := Classify(err)
		if !kind.Temporary() {
			// some platforms report bytes moved before the failure
			return moved(n, kind, err)
		}
		if n == 0 {
			return failed(WouldBlock, err)
		}
	} else if n == 0 {
		return failed(Classify(errFileTruncated), errFileTruncated)
	}
	s.ctl.ReconcileAfter(st, Reconcile{}, false)
	return sent(n)
}

func (s *Sender) sendFlags(rc Reconcile) int {
	flags := msgNoSignal
	if rc.UseMore {
		flags |= msgMore
	}
	return flags
}

// sessionKind classifies a record-layer failure. Only the session's own
// retry signals are transient; anything else means the session is broken.
func sessionKind(err error) ErrorKind {
	kind := Classify(err)
	if kind.Temporary() && (errors.Is(err, ErrTLSAgain) || errors.Is(err, ErrTLSInterrupted)) {
		return kind
	}
	return HardFailure
}
