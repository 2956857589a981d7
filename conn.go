package zsend

import (
	"net"
	"sync/atomic"

	"github.com/zhihanii/zlog"
)

// Conn is an accepted socket together with its transmission state. A Conn
// must only be driven by one goroutine at a time.
type Conn struct {
	netFD

	state  *SocketState
	sender *Sender
	file   *FileResponse
}

// NewConn wraps a nonblocking plain socket.
func NewConn(fd int, sender *Sender) *Conn {
	c := &Conn{sender: sender}
	c.netFD.fd = fd
	c.state = NewSocketState(fd)
	return c
}

// NewTLSConn wraps a socket whose writes go through session. fd is kept
// for bookkeeping only; no socket option is ever set on it.
func NewTLSConn(fd int, session TLSSession, sender *Sender) *Conn {
	c := &Conn{sender: sender}
	c.netFD.fd = fd
	c.state = NewTLSSocketState(fd, session)
	return c
}

// init prepares a freshly accepted plain socket.
func (c *Conn) init(network string, local, remote net.Addr) {
	c.network, c.localAddr, c.remoteAddr = network, local, remote
	setNonblock(c.fd)
	// enable TCP_NODELAY by default
	switch c.network {
	case "tcp", "tcp4", "tcp6":
		if err := setTCPNoDelay(c.fd, true); err != nil {
			zlog.Errorf("conn[%d] set nodelay: %v", c.fd, err)
		}
	}
}

func (c *Conn) State() *SocketState {
	return c.state
}

// Send writes p once; see Sender.SendSingle.
func (c *Conn) Send(p []byte, intent CorkIntent) Result {
	return c.sender.SendSingle(c.state, p, intent)
}

// SendDual writes header and body together; see Sender.SendDual.
func (c *Conn) SendDual(header, body []byte, intent CorkIntent) Result {
	return c.sender.SendDual(c.state, header, body, intent)
}

// ServeFile starts a file response of length bytes at offset. The
// descriptor stays owned by the caller.
func (c *Conn) ServeFile(fd int, offset, length uint64) *FileResponse {
	c.file = &FileResponse{
		region:   FileRegion{FD: fd, Offset: offset, Length: length},
		buffered: c.state.UsingTLS(),
	}
	return c.file
}

// File returns the pending file response, or nil.
func (c *Conn) File() *FileResponse {
	return c.file
}

// SendFile moves the next chunk of the pending file response. It
// switches the response to buffered transmission the first time
// zero-copy reports Unsupported and sends the rest of the chunk that way;
// N includes what zero-copy moved before failing. The response always
// advances by N, whatever the Kind. Once the response is complete, the
// connection is left uncorked.
func (c *Conn) SendFile() Result {
	f := c.file
	if f == nil || f.Remaining() == 0 {
		return sent(0)
	}
	var zc int64
	if !f.buffered {
		r := c.sender.SendFileRegion(c.state, f.region)
		// bytes moved before a failure still count
		f.advance(r.N)
		if r.Kind != Unsupported {
			c.finishFile()
			return r
		}
		zlog.Infof("conn[%d] zero-copy unavailable, buffering: %v", c.fd, r.Cause)
		f.buffered = true
		zc = r.N
		if f.Remaining() == 0 {
			c.finishFile()
			return sent(zc)
		}
	}
	r := c.sender.SendFileBuffered(c.state, f.region, NoCork)
	f.advance(r.N)
	r.N += zc
	c.finishFile()
	return r
}

func (c *Conn) finishFile() {
	if c.file != nil && c.file.Remaining() == 0 {
		c.file = nil
	}
}

// Flush uncorks the socket, pushing out anything held back.
func (c *Conn) Flush() error {
	return c.sender.Flush(c.state)
}

// Close flushes corking, then closes the socket. It does not close the
// descriptor of a pending file response.
func (c *Conn) Close() error {
	if c.isClosed() {
		return nil
	}
	if err := c.Flush(); err != nil {
		zlog.Errorf("conn[%d] flush before close: %v", c.fd, err)
	}
	c.file = nil
	if c.state.UsingTLS() {
		// the session owns the transport
		atomic.StoreUint32(&c.closed, 1)
		return nil
	}
	return c.netFD.Close()
}

// FileResponse tracks how far a file response has got.
type FileResponse struct {
	region   FileRegion
	sent     uint64
	buffered bool
}

// Remaining is the number of bytes still to send.
func (f *FileResponse) Remaining() uint64 {
	return f.region.Length
}

// Sent is the number of bytes sent so far.
func (f *FileResponse) Sent() uint64 {
	return f.sent
}

// Buffered reports whether the response goes through user space.
func (f *FileResponse) Buffered() bool {
	return f.buffered
}

func (f *FileResponse) advance(n int64) {
	if n <= 0 {
		return
	}
	u := uint64(n)
	if u > f.region.Length {
		u = f.region.Length
	}
	f.region.Offset += u
	f.region.Length -= u
	f.sent += u
}
