package zsend

import (
	"fmt"
	"math"
	"sync"

	"github.com/zhihanii/zlog"
)

// CorkMethod selects which socket option implements corking.
type CorkMethod uint8

const (
	// CorkOption uses a dedicated cork option (TCP_CORK).
	CorkOption CorkMethod = iota
	// NoPushOption uses TCP_NOPUSH.
	NoPushOption
	// NodelayOnly emulates corking by toggling TCP_NODELAY.
	NodelayOnly
)

func (m CorkMethod) String() string {
	switch m {
	case CorkOption:
		return "cork"
	case NoPushOption:
		return "nopush"
	case NodelayOnly:
		return "nodelay"
	}
	return fmt.Sprintf("CorkMethod(%d)", uint8(m))
}

// ZeroCopyMethod selects the file-to-socket transfer mechanism.
type ZeroCopyMethod uint8

const (
	ZeroCopyNone ZeroCopyMethod = iota
	ZeroCopyLinux
	ZeroCopyFreeBSD
	ZeroCopyDarwin
	ZeroCopySolaris
)

func (m ZeroCopyMethod) String() string {
	switch m {
	case ZeroCopyNone:
		return "none"
	case ZeroCopyLinux:
		return "linux-sendfile"
	case ZeroCopyFreeBSD:
		return "freebsd-sendfile"
	case ZeroCopyDarwin:
		return "darwin-sendfile"
	case ZeroCopySolaris:
		return "solaris-sendfile"
	}
	return fmt.Sprintf("ZeroCopyMethod(%d)", uint8(m))
}

// ExecModel is how connections are scheduled; it bounds how much a single
// zero-copy call may transfer before the caller gets control back.
type ExecModel uint8

const (
	// EventDriven: many connections share one execution context.
	EventDriven ExecModel = iota
	// ThreadPerConnection: each connection owns its context.
	ThreadPerConnection
)

func (m ExecModel) String() string {
	if m == ThreadPerConnection {
		return "thread-per-connection"
	}
	return "event-driven"
}

// Window is the inclusive payload size range in which HeaderCork corks.
type Window struct {
	Min int
	Max int
}

// Contains reports whether size lies in the window.
func (w Window) Contains(size int) bool {
	return size >= w.Min && size <= w.Max
}

const (
	chunk128k = 128 * 1024
	chunk2m   = 2 * 1024 * 1024

	// DefaultChunkSize bounds one zero-copy call for event-driven servers.
	DefaultChunkSize = chunk128k
	// DefaultThreadChunkSize bounds one zero-copy call for
	// thread-per-connection servers.
	DefaultThreadChunkSize = chunk2m
	// DefaultMaxSendSize is the largest byte count passed to one send call.
	DefaultMaxSendSize = math.MaxInt32
)

// DefaultWindow is the near-MSS header size range: headers of this size are
// corked so the first body bytes can share their segment.
var DefaultWindow = Window{Min: 1024, Max: 1220}

// Capability describes which corking and zero-copy primitives this
// platform has. It is resolved once and never mutated afterwards; copies
// are handed around by value.
type Capability struct {
	Cork     CorkMethod
	ZeroCopy ZeroCopyMethod
	// Vectored reports atomic multi-buffer writes (sendmsg with iovecs).
	Vectored bool
	// MoreHint reports a per-call "more data follows" send flag (MSG_MORE).
	MoreHint bool

	MaxSendSize     int
	MaxFileOffset   uint64
	Window          Window
	ChunkSize       int
	ThreadChunkSize int
}

// ChunkFor returns the zero-copy chunk bound for an execution model.
func (c Capability) ChunkFor(m ExecModel) int {
	if m == ThreadPerConnection {
		return c.ThreadChunkSize
	}
	return c.ChunkSize
}

func (c Capability) String() string {
	return fmt.Sprintf("cork=%s zerocopy=%s vectored=%t more=%t window=[%d,%d] chunk=%d/%d",
		c.Cork, c.ZeroCopy, c.Vectored, c.MoreHint, c.Window.Min, c.Window.Max,
		c.ChunkSize, c.ThreadChunkSize)
}

var (
	detectOnce sync.Once
	detected   Capability
)

// DetectCapability returns the process-wide capability descriptor for the
// platform this binary was built for.
func DetectCapability() Capability {
	detectOnce.Do(func() {
		detected = platformCapability()
		detected.MaxSendSize = DefaultMaxSendSize
		detected.MaxFileOffset = math.MaxInt64
		detected.Window = DefaultWindow
		detected.ChunkSize = DefaultChunkSize
		detected.ThreadChunkSize = DefaultThreadChunkSize
		zlog.Infof("zsend capability: %s", detected)
	})
	return detected
}
