package zsend

import "fmt"

// Corker applies one platform corking strategy to a socket. All strategies
// have the same observable effect: while corked, small writes are held
// back and coalesced; uncorking pushes whatever is pending.
type Corker interface {
	Method() CorkMethod
	Cork(fd int) error
	Uncork(fd int) error
}

// NewCorker returns the strategy for m, or the TCP_NODELAY emulation when
// the platform lacks the option m needs.
func NewCorker(m CorkMethod, sys Syscalls) Corker {
	switch {
	case m == CorkOption && optCork >= 0:
		return tcpCork{sys: sys}
	case m == NoPushOption && optNoPush >= 0:
		return tcpNoPush{sys: sys}
	}
	return nodelayCork{sys: sys}
}

// tcpCork drives TCP_CORK. If the kernel refuses it, toggling TCP_NODELAY
// gives the same direction of effect, so that is tried before giving up.
type tcpCork struct {
	sys Syscalls
}

func (tcpCork) Method() CorkMethod { return CorkOption }

func (c tcpCork) Cork(fd int) error {
	err := c.sys.SetsockoptInt(fd, ipprotoTCP, optCork, 1)
	if err == nil {
		return nil
	}
	if c.sys.SetsockoptInt(fd, ipprotoTCP, optNodelay, 0) == nil {
		return nil
	}
	return fmt.Errorf("set TCP_CORK: %w", err)
}

func (c tcpCork) Uncork(fd int) error {
	err := c.sys.SetsockoptInt(fd, ipprotoTCP, optCork, 0)
	if err == nil {
		return nil
	}
	if c.sys.SetsockoptInt(fd, ipprotoTCP, optNodelay, 1) == nil {
		return nil
	}
	return fmt.Errorf("clear TCP_CORK: %w", err)
}

// tcpNoPush drives TCP_NOPUSH. On FreeBSD clearing it sends pending data
// at once; Darwin only sends it with the next segment or timer.
type tcpNoPush struct {
	sys Syscalls
}

func (tcpNoPush) Method() CorkMethod { return NoPushOption }

func (c tcpNoPush) Cork(fd int) error {
	if err := c.sys.SetsockoptInt(fd, ipprotoTCP, optNoPush, 1); err != nil {
		return fmt.Errorf("set TCP_NOPUSH: %w", err)
	}
	return nil
}

func (c tcpNoPush) Uncork(fd int) error {
	if err := c.sys.SetsockoptInt(fd, ipprotoTCP, optNoPush, 0); err != nil {
		return fmt.Errorf("clear TCP_NOPUSH: %w", err)
	}
	return nil
}

// nodelayCork: Nagle on is "corked", TCP_NODELAY on is "uncorked".
type nodelayCork struct {
	sys Syscalls
}

func (nodelayCork) Method() CorkMethod { return NodelayOnly }

func (c nodelayCork) Cork(fd int) error {
	if err := c.sys.SetsockoptInt(fd, ipprotoTCP, optNodelay, 0); err != nil {
		return fmt.Errorf("clear TCP_NODELAY: %w", err)
	}
	return nil
}

func (c nodelayCork) Uncork(fd int) error {
	if err := c.sys.SetsockoptInt(fd, ipprotoTCP, optNodelay, 1); err != nil {
		return fmt.Errorf("set TCP_NODELAY: %w", err)
	}
	return nil
}
