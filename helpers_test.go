package zsend

import (
	"math"
	"syscall"
)

type sockopt struct {
	fd, level, opt, value int
}

type ioResult struct {
	n   int
	err error
}

// fakeSys records every call and answers from scripted results. Calls
// without a script succeed in full.
type fakeSys struct {
	// ops is the order of calls by name
	ops []string

	sockopts  []sockopt
	sockoptFn func(o sockopt) error

	sends     [][]byte
	sendFlags []int
	sendRes   []ioResult

	vectored    [][][]byte
	vectoredRes []ioResult

	sendfiles   []int
	sendfileRes []ioResult

	file    []byte
	preads  int
	preadFn func(p []byte, off int64) (int, error)
}

func (f *fakeSys) calls() int {
	return len(f.sockopts) + len(f.sends) + len(f.vectored) + len(f.sendfiles) + f.preads
}

func (f *fakeSys) SetsockoptInt(fd, level, opt, value int) error {
	f.ops = append(f.ops, "setsockopt")
	o := sockopt{fd, level, opt, value}
	f.sockopts = append(f.sockopts, o)
	if f.sockoptFn != nil {
		return f.sockoptFn(o)
	}
	return nil
}

func (f *fakeSys) Send(fd int, p []byte, flags int) (int, error) {
	f.ops = append(f.ops, "send")
	f.sends = append(f.sends, append([]byte(nil), p...))
	f.sendFlags = append(f.sendFlags, flags)
	if len(f.sendRes) > 0 {
		r := f.sendRes[0]
		f.sendRes = f.sendRes[1:]
		return r.n, r.err
	}
	return len(p), nil
}

func (f *fakeSys) SendBuffers(fd int, bufs [][]byte, flags int) (int, error) {
	f.ops = append(f.ops, "sendmsg")
	f.vectored = append(f.vectored, bufs)
	f.sendFlags = append(f.sendFlags, flags)
	if len(f.vectoredRes) > 0 {
		r := f.vectoredRes[0]
		f.vectoredRes = f.vectoredRes[1:]
		return r.n, r.err
	}
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	return n, nil
}

func (f *fakeSys) Sendfile(sock, file int, offset *int64, count int) (int, error) {
	f.ops = append(f.ops, "sendfile")
	f.sendfiles = append(f.sendfiles, count)
	if len(f.sendfileRes) > 0 {
		r := f.sendfileRes[0]
		f.sendfileRes = f.sendfileRes[1:]
		return r.n, r.err
	}
	return count, nil
}

func (f *fakeSys) Pread(fd int, p []byte, off int64) (int, error) {
	f.ops = append(f.ops, "pread")
	f.preads++
	if f.preadFn != nil {
		return f.preadFn(p, off)
	}
	if off >= int64(len(f.file)) {
		return 0, nil
	}
	return copy(p, f.file[off:]), nil
}

func refuseAll(sockopt) error { return syscall.EINVAL }

// fakeSession is a TLSSession that records cork transitions.
type fakeSession struct {
	corks   int
	uncorks int
	corked  bool
	sent    []byte
	sendErr []error
	// uncorkErr fails the next Uncork, leaving records held back.
	uncorkErr error
}

func (s *fakeSession) Send(p []byte) (int, error) {
	if len(s.sendErr) > 0 {
		err := s.sendErr[0]
		s.sendErr = s.sendErr[1:]
		if err != nil {
			return 0, err
		}
	}
	s.sent = append(s.sent, p...)
	return len(p), nil
}

func (s *fakeSession) Cork() {
	s.corks++
	s.corked = true
}

func (s *fakeSession) Uncork() error {
	s.uncorks++
	if err := s.uncorkErr; err != nil {
		s.uncorkErr = nil
		return err
	}
	s.corked = false
	return nil
}

func testCapability() Capability {
	return Capability{
		Cork:            CorkOption,
		ZeroCopy:        ZeroCopyLinux,
		Vectored:        true,
		MaxSendSize:     DefaultMaxSendSize,
		MaxFileOffset:   math.MaxInt64,
		Window:          DefaultWindow,
		ChunkSize:       DefaultChunkSize,
		ThreadChunkSize: DefaultThreadChunkSize,
	}
}

func newTestSender(sys *fakeSys, mutate ...func(c *Capability)) *Sender {
	caps := testCapability()
	for _, m := range mutate {
		m(&caps)
	}
	return NewSender(WithCapability(caps), WithSyscalls(sys))
}

func withoutVectored(c *Capability) { c.Vectored = false }

func withMoreHint(c *Capability) { c.MoreHint = true }
