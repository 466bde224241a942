package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/oggyb/catmatch/internal/metrics"
)

func TestCountersAreIndependentPerInstance(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.ObserveSwipe(true)
	a.ObserveSwipe(true)
	a.ObserveSwipe(false)
	a.ObserveMatch("matched", "sample")

	assert.Equal(t, 2.0, testutil.ToFloat64(a.Swipes.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Swipes.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Matches.WithLabelValues("matched", "sample")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Swipes.WithLabelValues("true")))
}
