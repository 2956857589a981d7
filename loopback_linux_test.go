//go:build linux

package zsend

import (
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestDetectCapabilityLinux(t *testing.T) {
	c := DetectCapability()
	assert.Equal(t, CorkOption, c.Cork)
	assert.Equal(t, ZeroCopyLinux, c.ZeroCopy)
	assert.True(t, c.Vectored)
	assert.True(t, c.MoreHint)
	assert.Equal(t, DefaultWindow, c.Window)
	assert.Equal(t, c, DetectCapability())
}

// loopback returns an accepted server side *Conn and the client end.
func loopback(t *testing.T, s *Sender) (*Conn, net.Conn) {
	t.Helper()
	nl, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln, err := ConvertListener(nl, s)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	client, err := net.Dial("tcp", nl.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	deadline := time.Now().Add(5 * time.Second)
	for {
		c, err := ln.Accept()
		if err == nil {
			t.Cleanup(func() { c.Close() })
			return c, client
		}
		require.True(t, errors.Is(err, ErrWouldBlock), err)
		require.True(t, time.Now().Before(deadline), "accept timed out")
		time.Sleep(5 * time.Millisecond)
	}
}

func waitWritable(t *testing.T, fd int) {
	t.Helper()
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	_, err := unix.Poll(fds, 1000)
	if err != nil && !errors.Is(err, unix.EINTR) {
		require.NoError(t, err)
	}
}

func TestLoopbackCorkToggles(t *testing.T) {
	c, _ := loopback(t, NewSender())
	assert.NotNil(t, c.RemoteAddr())

	nodelay, err := unix.GetsockoptInt(c.Fd(), unix.IPPROTO_TCP, unix.TCP_NODELAY)
	require.NoError(t, err)
	assert.Equal(t, 1, nodelay)

	caps := DetectCapability()
	caps.MoreHint = false
	s := NewSender(WithCapability(caps))
	st := NewSocketState(c.Fd())

	r := s.SendSingle(st, []byte("head"), MayCork)
	require.True(t, r.OK())
	cork, err := unix.GetsockoptInt(c.Fd(), unix.IPPROTO_TCP, unix.TCP_CORK)
	require.NoError(t, err)
	assert.Equal(t, 1, cork)

	r = s.SendSingle(st, []byte("tail"), NoCork)
	require.True(t, r.OK())
	cork, err = unix.GetsockoptInt(c.Fd(), unix.IPPROTO_TCP, unix.TCP_CORK)
	require.NoError(t, err)
	assert.Equal(t, 0, cork)
}

func TestLoopbackServeFile(t *testing.T) {
	content := testFile(700 * 1024)
	path := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	c, client := loopback(t, NewSender())
	header := []byte("HTTP/1.0 200 OK\r\n\r\n")

	got := make(chan []byte, 1)
	go func() {
		p, _ := io.ReadAll(client)
		got <- p
	}()

	for len(header) > 0 {
		r := c.Send(header, MayCork)
		if r.Kind.Temporary() {
			waitWritable(t, c.Fd())
			continue
		}
		require.True(t, r.OK(), r.Kind.String())
		header = header[r.N:]
	}
	f := c.ServeFile(int(file.Fd()), 0, uint64(len(content)))
	for c.File() != nil {
		r := c.SendFile()
		if r.Kind.Temporary() {
			waitWritable(t, c.Fd())
			continue
		}
		require.True(t, r.OK(), r.Err())
	}
	assert.False(t, f.Buffered())
	require.NoError(t, c.Close())

	select {
	case p := <-got:
		assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\n", string(p[:19]))
		assert.Equal(t, content, p[19:])
	case <-time.After(10 * time.Second):
		t.Fatal("client read timed out")
	}
}

func TestLoopbackSendDual(t *testing.T) {
	c, client := loopback(t, NewSender())
	header, body := []byte("head:"), []byte("body")
	r := c.SendDual(header, body, NoCork)
	require.True(t, r.OK())
	assert.EqualValues(t, 9, r.N)

	buf := make([]byte, 9)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "head:body", string(buf))
}

func TestConvertListenerAcceptWouldBlock(t *testing.T) {
	nl, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln, err := ConvertListener(nl, NewSender())
	require.NoError(t, err)
	defer ln.Close()

	assert.GreaterOrEqual(t, ln.Fd(), 0)
	assert.Equal(t, nl.Addr(), ln.Addr())
	flags, err := unix.FcntlInt(uintptr(ln.Fd()), unix.F_GETFL, 0)
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.O_NONBLOCK)

	c, err := ln.Accept()
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrWouldBlock), err)
}

func TestNetFDClosesDescriptorZero(t *testing.T) {
	saved, err := unix.Dup(0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Dup2(saved, 0)
		unix.Close(saved)
	})

	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	defer unix.Close(p[0])
	require.NoError(t, unix.Dup2(p[1], 0))
	require.NoError(t, unix.Close(p[1]))

	fd := &netFD{fd: 0}
	require.NoError(t, fd.Close())
	assert.True(t, fd.isClosed())

	// the write end is gone, so the reader sees end of file
	n, err := unix.Read(p[0], make([]byte, 1))
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = unix.FcntlInt(0, unix.F_GETFD, 0)
	assert.ErrorIs(t, err, unix.EBADF)
}
