package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordMemoryUsage_SetsPositiveGauge(t *testing.T) {
	RecordMemoryUsage()
	assert.Greater(t, testutil.ToFloat64(MemoryUsageBytes), float64(0))
}
