package zsend

import (
	"syscall"
)

// FileRegionTransfer moves bytes from a file descriptor to a socket inside
// the kernel. Implementations translate their platform's return convention
// into one contract: n is every byte moved, even when err is non-nil, and
// err is either nil, a raw transient signal, or a signal Classify maps to
// the kind this platform gives it.
type FileRegionTransfer interface {
	Method() ZeroCopyMethod
	TransferFile(sock, file int, offset int64, count int) (n int64, err error)
}

// NewFileRegionTransfer returns the mechanism for m, or nil for
// ZeroCopyNone.
func NewFileRegionTransfer(m ZeroCopyMethod, sys Syscalls) FileRegionTransfer {
	switch m {
	case ZeroCopyLinux:
		return linuxSendfile{sys: sys}
	case ZeroCopyFreeBSD:
		return freebsdSendfile{sys: sys}
	case ZeroCopyDarwin:
		return darwinSendfile{sys: sys}
	case ZeroCopySolaris:
		return solarisSendfile{sys: sys}
	}
	return nil
}

func isErrno(err error, errnos ...syscall.Errno) bool {
	e, ok := err.(syscall.Errno)
	if !ok {
		return false
	}
	for _, v := range errnos {
		if e == v {
			return true
		}
	}
	return false
}

func isTransient(err error) bool {
	return isErrno(err, syscall.EAGAIN, syscall.EWOULDBLOCK, syscall.EINTR)
}

func isPeerGone(err error) bool {
	return isErrno(err, syscall.ENOTCONN, syscall.EPIPE, syscall.ECONNRESET)
}

// linuxSendfile: sendfile(2) returns -1 on error and never reports partial
// progress together with an error. EINVAL means the descriptor cannot be
// mmap-ed (pipes, some filesystems), and glibc/kernel combinations report
// other oddities too, so anything unrecognized downgrades to buffered I/O.
type linuxSendfile struct {
	sys Syscalls
}

func (linuxSendfile) Method() ZeroCopyMethod { return ZeroCopyLinux }

func (t linuxSendfile) TransferFile(sock, file int, offset int64, count int) (int64, error) {
	off := offset
	n, err := t.sys.Sendfile(sock, file, &off, count)
	if n < 0 {
		n = 0
	}
	if err == nil || isTransient(err) || isPeerGone(err) || isErrno(err, syscall.EBADF) {
		return int64(n), err
	}
	return int64(n), asUnsupported(err)
}

// freebsdSendfile: sendfile(2) reports bytes sent alongside EAGAIN, EINTR
// and EBUSY (pages busy under SF_NODISKIO). Any other failure means the
// descriptor is not usable for sendfile.
type freebsdSendfile struct {
	sys Syscalls
}

func (freebsdSendfile) Method() ZeroCopyMethod { return ZeroCopyFreeBSD }

func (t freebsdSendfile) TransferFile(sock, file int, offset int64, count int) (int64, error) {
	n, err := t.sys.Sendfile(sock, file, &offset, count)
	if n < 0 {
		n = 0
	}
	if err == nil || isTransient(err) || isErrno(err, syscall.EBUSY, syscall.EBADF) || isPeerGone(err) {
		return int64(n), err
	}
	return int64(n), asUnsupported(err)
}

// darwinSendfile: the in/out length argument carries the bytes sent even
// when EAGAIN or EINTR is returned. ENOTSUP means the descriptor is not a
// regular file; everything else is a descriptor-level failure.
type darwinSendfile struct {
	sys Syscalls
}

func (darwinSendfile) Method() ZeroCopyMethod { return ZeroCopyDarwin }

func (t darwinSendfile) TransferFile(sock, file int, offset int64, count int) (int64, error) {
	n, err := t.sys.Sendfile(sock, file, &offset, count)
	if n < 0 {
		n = 0
	}
	if n > count {
		n = count
	}
	switch {
	case err == nil, isTransient(err), isPeerGone(err):
		return int64(n), err
	case isErrno(err, syscall.ENOTSUP, syscall.EOPNOTSUPP):
		return int64(n), asUnsupported(err)
	}
	return int64(n), asBadDescriptor(err)
}

// solarisSendfile: EAFNOSUPPORT, EINVAL and EOPNOTSUPP mean the socket or
// file type cannot be used; everything else unrecognized is a
// descriptor-level failure.
type solarisSendfile struct {
	sys Syscalls
}

func (solarisSendfile) Method() ZeroCopyMethod { return ZeroCopySolaris }

func (t solarisSendfile) TransferFile(sock, file int, offset int64, count int) (int64, error) {
	off := offset
	n, err := t.sys.Sendfile(sock, file, &off, count)
	if n < 0 {
		n = 0
	}
	switch {
	case err == nil, isTransient(err), isPeerGone(err):
		return int64(n), err
	case isErrno(err, syscall.EAFNOSUPPORT, syscall.EINVAL, syscall.EOPNOTSUPP):
		return int64(n), asUnsupported(err)
	}
	return int64(n), asBadDescriptor(err)
}
