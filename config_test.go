package zsend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
header_cork_min: 512
header_cork_max: 1400
sendfile_chunk: 65536
sendfile_chunk_thread_per_conn: 1048576
buffer_size: 16384
exec_model: thread-per-connection
disable_vectored: true
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.HeaderCorkMin)
	assert.Equal(t, 1400, cfg.HeaderCorkMax)
	assert.Equal(t, ThreadPerConnection, cfg.ExecModel())
	assert.True(t, cfg.DisableVectored)
	assert.False(t, cfg.DisableZeroCopy)

	caps, err := cfg.Apply(testCapability())
	require.NoError(t, err)
	assert.Equal(t, Window{Min: 512, Max: 1400}, caps.Window)
	assert.Equal(t, 65536, caps.ChunkSize)
	assert.Equal(t, 1048576, caps.ThreadChunkSize)
	assert.False(t, caps.Vectored)
	assert.Equal(t, ZeroCopyLinux, caps.ZeroCopy)
}

func TestConfigDefaultsKeepCapability(t *testing.T) {
	cfg, err := ParseConfig([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, EventDriven, cfg.ExecModel())
	caps, err := cfg.Apply(testCapability())
	require.NoError(t, err)
	assert.Equal(t, testCapability(), caps)
}

func TestConfigCannotEnableFeatures(t *testing.T) {
	caps := testCapability()
	caps.Vectored = false
	caps.ZeroCopy = ZeroCopyNone
	got, err := (&Config{}).Apply(caps)
	require.NoError(t, err)
	assert.False(t, got.Vectored)
	assert.Equal(t, ZeroCopyNone, got.ZeroCopy)

	got, err = (&Config{DisableZeroCopy: true}).Apply(testCapability())
	require.NoError(t, err)
	assert.Equal(t, ZeroCopyNone, got.ZeroCopy)
}

func TestConfigValidate(t *testing.T) {
	bad := []string{
		"header_cork_min: 2000\nheader_cork_max: 1000\n",
		"header_cork_min: -1\n",
		"sendfile_chunk: -5\n",
		"exec_model: fibers\n",
		"header_cork_min: [1, 2]\n",
		// one-sided bounds still have to fit the default window
		"header_cork_min: 1500\n",
		"header_cork_max: 1000\n",
	}
	for _, doc := range bad {
		_, err := ParseConfig([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zsend.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 16384, cfg.BufferSize)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigOptions(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	sys := &fakeSys{}
	opts, err := cfg.Options(testCapability())
	require.NoError(t, err)
	s := NewSender(append(opts, WithSyscalls(sys))...)
	assert.False(t, s.Capability().Vectored)

	s.SendFileRegion(NewSocketState(7), FileRegion{FD: 9, Length: 10 << 20})
	assert.Equal(t, []int{1048576}, sys.sendfiles)
}

func TestConfigApplyMergedWindow(t *testing.T) {
	caps := testCapability()
	caps.Window = Window{Min: 4000, Max: 8000}

	cfg, err := ParseConfig([]byte("header_cork_max: 2000\n"))
	require.NoError(t, err)
	_, err = cfg.Apply(caps)
	assert.Error(t, err)
	opts, err := cfg.Options(caps)
	assert.Error(t, err)
	assert.Nil(t, opts)

	got, err := (&Config{HeaderCorkMin: 5000}).Apply(caps)
	require.NoError(t, err)
	assert.Equal(t, Window{Min: 5000, Max: 8000}, got.Window)
}
