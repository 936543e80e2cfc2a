package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveParse("python", 2, 3, nil)
	m.ObserveParse("python", 0, 0, errors.New("parse"))
	m.ObserveOracle("ok", 200*time.Millisecond)
	m.ObserveOracle("rate_limited", time.Second)
	m.ObserveDecision("approve")
	m.ObserveApply("verified", true)
	m.ObserveApply("restored", true)
	m.ObserveRollback()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesParsed.WithLabelValues("python", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesParsed.WithLabelValues("python", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.symbols.WithLabelValues("python", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleCalls.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("approve")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.backups))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rollbacks))
	assert.Equal(t, 1, testutil.CollectAndCount(m.oracleLatency))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveParse("go", 1, 1, nil)
		m.ObserveOracle("ok", time.Second)
		m.ObserveDecision("skip")
		m.ObserveApply("verified", false)
		m.ObserveRollback()
	})
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.ObserveApply("verified", true)

	path := filepath.Join(t.TempDir(), "docfill.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `docfill_file_applies_total{state="verified"} 1`)
	assert.Contains(t, string(raw), "docfill_backups_created_total 1")
}
