package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCollect_WithNilDependencies(t *testing.T) {
	c := &Collector{}
	result := c.Collect(context.Background())
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "disconnected", result.Dependencies["database"].Status)
	assert.Equal(t, "not_configured", result.Dependencies["redis"].Status)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
}

func TestCollect_DatabaseOnlyIsOK(t *testing.T) {
	c := &Collector{DB: pinger{}, Engine: EngineInfo{MappingVersion: 3, FactorCache: "disabled", WriteLock: "local"}}
	result := c.Collect(context.Background())
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "connected", result.Dependencies["database"].Status)
	assert.NotNil(t, result.Dependencies["database"].PingMs)
	assert.Equal(t, 3, result.Engine.MappingVersion)

	c.DB = pinger{err: errors.New("refused")}
	result = c.Collect(context.Background())
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "error", result.Dependencies["database"].Status)
}

func TestCollect_WithMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	c := &Collector{Rdb: rdb, DB: pinger{}}
	result := c.Collect(ctx)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "connected", result.Dependencies["redis"].Status)
	assert.Equal(t, "100", result.Traffic.SuccessRate)

	require.NoError(t, rdb.Set(ctx, "health:global:req_total", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:req_errors", "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_time_total", "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_count", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:last_request", `{"path":"/api/v1/footprint/calculate"}`, 0).Err())

	result = c.Collect(ctx)
	assert.Equal(t, 10, result.Traffic.TotalRequests)
	assert.Equal(t, 2, result.Traffic.FailedCount)
	assert.Equal(t, 8, result.Traffic.SuccessCount)
	assert.Equal(t, "80.0", result.Traffic.SuccessRate)
	assert.Equal(t, "15.05", result.Traffic.AvgResponseTime)
	assert.Equal(t, "/api/v1/footprint/calculate", result.Traffic.LastRequest.(map[string]interface{})["path"])

	mr.Close()
	result = c.Collect(ctx)
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "error", result.Dependencies["redis"].Status)
}

func TestResetAndErrorLog(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	rdb.LPush(ctx, "health:global:error_log", `{"message":"older"}`, `not json`, `{"message":"newest"}`)
	entries, err := ErrorLog(ctx, rdb, 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "newest", entries[0]["message"])

	require.NoError(t, rdb.Set(ctx, "health:global:req_total", "5", 0).Err())
	require.NoError(t, Reset(ctx, rdb))
	assert.False(t, mr.Exists("health:global:req_total"))
	assert.False(t, mr.Exists("health:global:error_log"))
	assert.True(t, mr.Exists("health:global:start_time"))

	empty, err := ErrorLog(ctx, nil, 50)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRenderDashboardHTML(t *testing.T) {
	html, err := RenderDashboardHTML(CollectResult{
		Status:       "issue",
		Dependencies: map[string]DepStatus{"database": {Status: "error"}},
		Engine:       EngineInfo{MappingVersion: 3, MappingCategories: 9},
	})
	require.NoError(t, err)
	assert.Contains(t, html, "System Issues Detected")
	assert.Contains(t, html, "activity mapping v3 (9 categories)")
	assert.Contains(t, html, "/health/errors")
}
