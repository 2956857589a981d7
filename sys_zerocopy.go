//go:build linux || freebsd || dragonfly || darwin || solaris

package zsend

import "golang.org/x/sys/unix"

func (systemCalls) Sendfile(sock, file int, offset *int64, count int) (int, error) {
	return unix.Sendfile(sock, file, offset, count)
}
