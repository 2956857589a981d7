//go:build unix

package zsend

import "golang.org/x/sys/unix"

type systemCalls struct{}

func (systemCalls) Send(fd int, p []byte, flags int) (int, error) {
	// connected stream socket: no destination address
	return unix.SendmsgN(fd, p, nil, nil, flags)
}

func (systemCalls) SendBuffers(fd int, bufs [][]byte, flags int) (int, error) {
	return unix.SendmsgBuffers(fd, bufs, nil, nil, flags)
}

func (systemCalls) SetsockoptInt(fd, level, opt, value int) error {
	return unix.SetsockoptInt(fd, level, opt, value)
}

func (systemCalls) Pread(fd int, p []byte, offset int64) (int, error) {
	return unix.Pread(fd, p, offset)
}
