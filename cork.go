package zsend

import (
	"github.com/zhihanii/zlog"
)

// Controller reconciles a connection's corking state with what each call
// wants, issuing as few setsockopt calls as possible. It holds no
// per-connection state and may be shared by all connections.
type Controller struct {
	corker  Corker
	window  Window
	more    bool
	metrics *Metrics
}

// NewController builds the controller for a capability descriptor.
// metrics may be nil.
func NewController(c Capability, sys Syscalls, metrics *Metrics) *Controller {
	return &Controller{
		corker:  NewCorker(c.Cork, sys),
		window:  c.Window,
		more:    c.MoreHint,
		metrics: metrics,
	}
}

// Method returns the corking strategy in use.
func (c *Controller) Method() CorkMethod {
	return c.corker.Method()
}

// WantCork resolves an intent for a payload of size bytes.
func (c *Controller) WantCork(intent CorkIntent, size int) bool {
	switch intent {
	case MayCork:
		return true
	case HeaderCork:
		return c.window.Contains(size)
	}
	return false
}

// Reconcile records what ReconcileBefore did for one call.
type Reconcile struct {
	Want bool
	// UseMore means the write must carry MSG_MORE: the cork request is
	// expressed per call instead of by changing the socket.
	UseMore bool
	tried   bool
}

// ReconcileBefore brings the socket to the wanted state ahead of a write.
// A failed setsockopt leaves st unchanged and is not reported: corking
// is an optimization and the write proceeds either way.
func (c *Controller) ReconcileBefore(st *SocketState, want bool) Reconcile {
	r := Reconcile{Want: want}
	if st.tls != nil {
		// record layer: cork ahead of the write, uncork after it
		if want && !st.Corked() {
			st.tls.Cork()
			st.cork = Corked
			c.metrics.corkOp("tls", true, nil)
		}
		return r
	}
	if want == st.Corked() {
		st.refused = false
		return r
	}
	if want && c.more {
		r.UseMore = true
		return r
	}
	if st.refused && st.refusedWant == want {
		return r
	}
	r.tried = true
	c.apply(st, want)
	return r
}

// ReconcileAfter flushes corking once a write completes, unless the call
// wanted corking or the caller knows more data follows immediately. This
// is the only place corking is removed without a new call asking for it.
func (c *Controller) ReconcileAfter(st *SocketState, r Reconcile, moreExpected bool) {
	if r.Want || moreExpected {
		return
	}
	st.moreHeld = false
	if !st.Corked() {
		return
	}
	if st.tls != nil {
		if err := c.uncorkSession(st); err != nil {
			zlog.Errorf("zsend: fd[%d] tls uncork: %v", st.fd, err)
		}
		return
	}
	if r.tried || (st.refused && !st.refusedWant) {
		return
	}
	c.apply(st, false)
}

// Flush leaves the connection uncorked with nothing held back. It must be
// called before the socket is closed if the connection may be corked.
func (c *Controller) Flush(st *SocketState) error {
	if st.tls != nil {
		if !st.Corked() {
			return nil
		}
		return c.uncorkSession(st)
	}
	if !st.Corked() && !st.moreHeld {
		return nil
	}
	err := c.corker.Uncork(st.fd)
	c.metrics.corkOp(c.corker.Method().String(), false, err)
	if err != nil {
		zlog.Errorf("zsend: fd[%d] flush: %v", st.fd, err)
		return err
	}
	st.cork, st.moreHeld, st.refused = Uncorked, false, false
	return nil
}

func (c *Controller) apply(st *SocketState, want bool) {
	var err error
	if want {
		err = c.corker.Cork(st.fd)
	} else {
		err = c.corker.Uncork(st.fd)
	}
	c.metrics.corkOp(c.corker.Method().String(), want, err)
	if err != nil {
		zlog.Errorf("zsend: fd[%d] %v", st.fd, err)
		st.refused, st.refusedWant = true, want
		return
	}
	st.refused = false
	if want {
		st.cork = Corked
	} else {
		st.cork = Uncorked
	}
}

func (c *Controller) uncorkSession(st *SocketState) error {
	err := st.tls.Uncork()
	c.metrics.corkOp("tls", false, err)
	if err != nil {
		return err
	}
	st.cork = Uncorked
	return nil
}
