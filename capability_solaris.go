//go:build solaris

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

func platformCapability() Capability {
	return Capability{
		Cork:     NodelayOnly,
		ZeroCopy: ZeroCopySolaris,
		Vectored: true,
	}
}
