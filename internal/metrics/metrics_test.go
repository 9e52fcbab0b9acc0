package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	r.ObservePackage(true)
	r.ObservePackage(false)
	r.ObserveMethod(false, 10*time.Millisecond)
	r.ObserveMethod(true, time.Millisecond)
	r.ObserveMethod(false, time.Millisecond)
	r.ObserveAssertions("valid", 3)
	r.ObserveAssertions("unproven", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.packages.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.packages.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.methods.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.methods.WithLabelValues("exception")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.assertions.WithLabelValues("valid")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.assertions))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	r.ObserveAssertions("invalid", 2)

	path := filepath.Join(t.TempDir(), "tverify.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tverify_assertions_total{verdict="invalid"} 2`)
}

func TestNilRecorder(t *testing.T) {
	t.Parallel()
	var r *Recorder
	r.ObservePackage(true)
	r.ObserveMethod(true, time.Second)
	r.ObserveAssertions("valid", 1)
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}
