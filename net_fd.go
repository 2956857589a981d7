package zsend

import (
	"net"
	"sync/atomic"

	"github.com/zhihanii/zlog"
)

type netFD struct {
	// file descriptor
	fd int
	// closed marks whether fd has expired
	closed     uint32
	network    string // tcp tcp4 tcp6, unix
	localAddr  net.Addr
	remoteAddr net.Addr
}

func (c *netFD) Fd() (fd int) {
	return c.fd
}

// Close will be executed only once.
func (c *netFD) Close() (err error) {
	if atomic.AddUint32(&c.closed, 1) != 1 {
		return nil
	}
	if c.fd >= 0 {
		err = closeFD(c.fd)
		if err != nil {
			zlog.Errorf("netFD[%d] close error: %s", c.fd, err.Error())
		}
	}
	return err
}

func (c *netFD) isClosed() bool {
	return atomic.LoadUint32(&c.closed) != 0
}

func (c *netFD) LocalAddr() (addr net.Addr) {
	return c.localAddr
}

func (c *netFD) RemoteAddr() (addr net.Addr) {
	return c.remoteAddr
}
