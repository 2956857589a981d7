//go:build unix

package zsend

import (
	"errors"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Listener accepts plain TCP connections as *Conn, sharing one Sender.
type Listener interface {
	Accept() (*Conn, error)
	Close() error
	Addr() net.Addr
	Fd() int
}

// ConvertListener takes over the descriptor of a *net.TCPListener and
// switches it to nonblocking mode. Accept then reports ErrWouldBlock
// instead of waiting.
func ConvertListener(netListener net.Listener, sender *Sender) (Listener, error) {
	l := new(listener)
	l.netListener = netListener
	l.addr = netListener.Addr()
	l.sender = sender
	var err = l.parseFD()
	if err != nil {
		return nil, err
	}
	return l, setNonblock(l.fd)
}

type listener struct {
	fd          int
	addr        net.Addr
	netListener net.Listener
	file        *os.File
	sender      *Sender
}

func (l *listener) Accept() (*Conn, error) {
	var fd, sa, err = unix.Accept(l.fd)
	if err != nil {
		return nil, &Error{Kind: Classify(err), Op: "accept", Err: err}
	}
	var c = NewConn(fd, l.sender)
	c.init(l.addr.Network(), l.addr, sockaddrToAddr(sa))
	return c, nil
}

func (l *listener) Close() error {
	// the descriptor belongs to file
	if l.file != nil {
		l.file.Close()
	}
	if l.netListener != nil {
		l.netListener.Close()
	}
	return nil
}

func (l *listener) Addr() net.Addr {
	return l.addr
}

func (l *listener) Fd() int {
	return l.fd
}

func (l *listener) parseFD() (err error) {
	switch netListener := l.netListener.(type) {
	case *net.TCPListener:
		l.file, err = netListener.File()
	default:
		return errors.New("listener type can't support")
	}
	if err != nil {
		return err
	}
	l.fd = int(l.file.Fd())
	return nil
}
