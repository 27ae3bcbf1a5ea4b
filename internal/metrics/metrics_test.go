package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	PostsCreated.Inc()
	FriendRequests.WithLabelValues("sent").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		names[mf.GetName()] = mf
	}
	require.Contains(t, names, "dailyduo_posts_created_total")
	assert.GreaterOrEqual(t, names["dailyduo_posts_created_total"].GetMetric()[0].GetCounter().GetValue(), 1.0)
	require.Contains(t, names, "dailyduo_friend_requests_total")

	assert.Panics(t, func() { Register(reg) })
}
