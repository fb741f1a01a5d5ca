package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) []*dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	return mfs
}

// sample finds the series of family name whose labels include every pair
// in labels (given as name, value, name, value...).
func sample(mfs []*dto.MetricFamily, name string, labels ...string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabels(m.GetLabel(), labels) {
				return m, nil
			}
		}
		return nil, fmt.Errorf("%s has no series %v", name, labels)
	}
	return nil, fmt.Errorf("metric %q not found", name)
}

func hasLabels(pairs []*dto.LabelPair, want []string) bool {
	for i := 0; i+1 < len(want); i += 2 {
		found := false
		for _, p := range pairs {
			if p.GetName() == want[i] && p.GetValue() == want[i+1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels ...string) (float64, error) {
	m, err := sample(mfs, name, labels...)
	if err != nil {
		return 0, err
	}
	return m.GetCounter().GetValue(), nil
}
