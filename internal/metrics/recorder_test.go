package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRecorder_RegistersMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveBuildDuration(2 * time.Second)
	r.ObservePhaseDuration("rendering", time.Second)
	r.IncFileOutcome(OutcomeRendered)
	r.IncBuildOutcome(BuildSuccess)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["sitegen_build_duration_seconds"])
	require.True(t, names["sitegen_phase_duration_seconds"])
	require.True(t, names["sitegen_file_outcomes_total"])
	require.True(t, names["sitegen_build_outcomes_total"])
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.ObserveBuildDuration(time.Second)
	r.ObservePhaseDuration("x", time.Second)
	r.IncFileOutcome(OutcomeErrored)
	r.IncBuildOutcome(BuildFailed)
}
