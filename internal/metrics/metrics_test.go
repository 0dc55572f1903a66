package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveValidation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveValidation(true, 5, nil)
	m.ObserveValidation(false, 4, []string{"off_color", "off_color", "invented_card"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("invalid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IssuesTotal.WithLabelValues("off_color")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IssuesTotal.WithLabelValues("invented_card")))
}

func TestObserveCompletion(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCompletion("ollama", time.Second, nil)
	m.ObserveCompletion("ollama", time.Second, errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("ollama", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("ollama", "error")))
}

func TestAddLookups(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AddLookups("sqlite", "hit", 3)
	m.AddLookups("sqlite", "miss", 0)
	m.IncRegeneration()
	m.ObserveTablesReload(nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.LookupCacheTotal.WithLabelValues("sqlite", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegenerationsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TablesReloadsTotal.WithLabelValues("ok")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveValidation(true, 1, nil)
	m.ObserveCompletion("anthropic", time.Millisecond, nil)
	m.IncRegeneration()
	m.AddLookups("redis", "hit", 1)
	m.ObserveFetch(time.Millisecond)
	m.ObserveTablesReload(errors.New("bad toml"))
}
