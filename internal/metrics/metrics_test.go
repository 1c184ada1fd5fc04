package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.LiveInstances.Set(3)
	m.Created.WithLabelValues("shape").Inc()
	m.Events.WithLabelValues("moving").Add(2)
	m.StaleEvents.Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.LiveInstances))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Created.WithLabelValues("shape")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("moving")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "editor_plugin_instances")
	assert.Contains(t, names, "editor_surface_stale_events_total")
}

func TestNop_IsIndependent(t *testing.T) {
	a := Nop()
	b := Nop()
	a.StaleEvents.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.StaleEvents))
}
