package zsend

// Syscalls is the set of socket and file operations the transmission
// primitives issue. On a nonblocking socket none of them suspends the
// caller.
type Syscalls interface {
	SetsockoptInt(fd, level, opt, value int) error
	// Send writes p with the given MSG_* flags.
	Send(fd int, p []byte, flags int) (int, error)
	// SendBuffers writes bufs as one vectored call.
	SendBuffers(fd int, bufs [][]byte, flags int) (int, error)
	// Sendfile copies count bytes of file at *offset to sock inside the
	// kernel. The byte count follows the platform's own convention and is
	// normalized by the FileRegionTransfer that issued the call.
	Sendfile(sock, file int, offset *int64, count int) (int, error)
	Pread(fd int, p []byte, offset int64) (int, error)
}

// SystemCalls returns the Syscalls implementation backed by the OS.
func SystemCalls() Syscalls {
	return systemCalls{}
}
