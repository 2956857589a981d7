//go:build freebsd || dragonfly

package zsend

import "golang.org/x/sys/unix"

const (
	ipprotoTCP  = unix.IPPROTO_TCP
	optNodelay  = unix.TCP_NODELAY
	optCork     = -1
	optNoPush   = unix.TCP_NOPUSH
	msgMore     = 0
	msgNoSignal = unix.MSG_NOSIGNAL
)

func platformCapability() Capability {
	return Capability{
		Cork:     NoPushOption,
		ZeroCopy: ZeroCopyFreeBSD,
		Vectored: true,
	}
}
