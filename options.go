package zsend

// Option configures a Sender.
type Option func(o *options)

type options struct {
	capability *Capability
	sys        Syscalls
	model      ExecModel
	metrics    *Metrics
	bufferSize int
}

// WithCapability replaces the detected capability descriptor, typically
// with one adjusted by Config.Apply.
func WithCapability(c Capability) Option {
	return func(o *options) {
		o.capability = &c
	}
}

// WithSyscalls replaces the OS syscall surface.
func WithSyscalls(sys Syscalls) Option {
	return func(o *options) {
		o.sys = sys
	}
}

// WithExecModel tells the Sender how connections are scheduled.
func WithExecModel(m ExecModel) Option {
	return func(o *options) {
		o.model = m
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithBufferSize sets the read size of the buffered file path.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}
