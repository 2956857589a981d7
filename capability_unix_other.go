//go:build unix && !linux && !freebsd && !dragonfly && !darwin && !solaris

package zsend

import "golang.org/x/sys/unix"

const (
	ipprotoTCP  = unix.IPPROTO_TCP
	optNodelay  = unix.TCP_NODELAY
	optCork     = -1
	optNoPush   = -1
	msgMore     = 0
	msgNoSignal = 0
)

// No sendfile here: NetBSD and OpenBSD have none.
func platformCapability() Capability {
	return Capability{
		Cork:     NodelayOnly,
		ZeroCopy: ZeroCopyNone,
		Vectored: true,
	}
}
