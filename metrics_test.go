package zsend

import (
	"syscall"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	sys := &fakeSys{
		sendRes:     []ioResult{{5, nil}, {-1, syscall.EAGAIN}},
		sendfileRes: []ioResult{{-1, syscall.EINVAL}},
	}
	s := NewSender(WithCapability(testCapability()), WithSyscalls(sys), WithMetrics(m))
	st := NewSocketState(7)

	s.SendSingle(st, []byte("hello"), MayCork)
	s.SendSingle(st, []byte("again"), MayCork)
	s.SendFileRegion(st, FileRegion{FD: 9, Length: 100})

	assert.Equal(t, 5.0, testutil.ToFloat64(m.BytesSent.WithLabelValues("single")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransferErrors.WithLabelValues("single", "would-block")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransferErrors.WithLabelValues("file", "unsupported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Downgrades))
	strategy := s.Controller().Method().String()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorkOps.WithLabelValues(strategy, "cork", "ok")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe("single", sent(1))
		m.corkOp("cork", true, nil)
		m.downgrade()
	})
	assert.NotPanics(t, func() { NewMetrics(nil).downgrade() })
}
