//go:build !unix

package zsend

const (
	ipprotoTCP  = 6
	optNodelay  = 1
	optCork     = -1
	optNoPush   = -1
	msgMore     = 0
	msgNoSignal = 0
)

func platformCapability() Capability {
	return Capability{
		Cork:     NodelayOnly,
		ZeroCopy: ZeroCopyNone,
	}
}
