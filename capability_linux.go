//go:build linux

package zsend

import "golang.org/x/sys/unix"

const (
	ipprotoTCP  = unix.IPPROTO_TCP
	optNodelay  = unix.TCP_NODELAY
	optCork     = unix.TCP_CORK
	optNoPush   = -1
	msgMore     = unix.MSG_MORE
	msgNoSignal = unix.MSG_NOSIGNAL
)

// Linux has had TCP_CORK since 2.2 and it combines with TCP_NODELAY since
// 2.5.71, so the connection can keep NODELAY on and cork on top of it.
func platformCapability() Capability {
	return Capability{
		Cork:     CorkOption,
		ZeroCopy: ZeroCopyLinux,
		Vectored: true,
		MoreHint: true,
	}
}
