//go:build !unix

package zsend

import "errors"

func closeFD(fd int) error {
	return errors.ErrUnsupported
}

func setNonblock(fd int) error {
	return errors.ErrUnsupported
}

func setTCPNoDelay(fd int, b bool) (err error) {
	return errors.ErrUnsupported
}
