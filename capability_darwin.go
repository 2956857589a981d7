//go:build darwin

package zsend

import "golang.org/x/sys/unix"

const (
	ipprotoTCP = unix.IPPROTO_TCP
	optNodelay = unix.TCP_NODELAY
	optCork    = -1
	optNoPush  = unix.TCP_NOPUSH
	msgMore    = 0
	// SIGPIPE is suppressed by the Go runtime for non-stdio descriptors.
	msgNoSignal = 0
)

func platformCapability() Capability {
	return Capability{
		Cork:     NoPushOption,
		ZeroCopy: ZeroCopyDarwin,
		Vectored: true,
	}
}
