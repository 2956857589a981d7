//go:build !unix

package zsend

import "errors"

type systemCalls struct{}

func (systemCalls) Send(fd int, p []byte, flags int) (int, error) {
	return 0, errors.ErrUnsupported
}

func (systemCalls) SendBuffers(fd int, bufs [][]byte, flags int) (int, error) {
	return 0, errors.ErrUnsupported
}

func (systemCalls) SetsockoptInt(fd, level, opt, value int) error {
	return errors.ErrUnsupported
}

func (systemCalls) Sendfile(sock, file int, offset *int64, count int) (int, error) {
	return 0, errors.ErrUnsupported
}

func (systemCalls) Pread(fd int, p []byte, offset int64) (int, error) {
	return 0, errors.ErrUnsupported
}
