package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOnce(t *testing.T) {
	r := prometheus.NewRegistry()
	assert.NotPanics(t, func() {
		Register(r)
		Register(r)
	})
	assert.Equal(t, prometheus.Registerer(r), GetRegisterer())

	SerializationTotal.WithLabelValues("full", SuccessLabel).Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(SerializationTotal.WithLabelValues("full", SuccessLabel)))

	count, err := testutil.GatherAndCount(r, "graphdoc_serialization_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWriteTextfile(t *testing.T) {
	r := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "graphdoc_test_total", Help: "test"})
	r.MustRegister(counter)
	counter.Add(3)

	path := filepath.Join(t.TempDir(), "graphdoc.prom")
	require.NoError(t, WriteTextfile(path, r))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "graphdoc_test_total 3"))
}
