package health

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tactiled/internal/history"
	"tactiled/internal/hybrid"
	"tactiled/internal/phoneme"
	"tactiled/internal/tables"
)

func static(status Status) Check {
	return func(context.Context) CheckResult { return CheckResult{Status: status} }
}

func TestChecker_Aggregation(t *testing.T) {
	tests := []struct {
		name     string
		critical Status
		optional Status
		want     Status
	}{
		{"all healthy", StatusHealthy, StatusHealthy, StatusHealthy},
		{"optional unhealthy degrades", StatusHealthy, StatusUnhealthy, StatusDegraded},
		{"critical degraded", StatusDegraded, StatusHealthy, StatusDegraded},
		{"critical unhealthy", StatusUnhealthy, StatusHealthy, StatusUnhealthy},
		{"critical unknown", StatusUnknown, StatusHealthy, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			c.RegisterFunc("core", true, static(tt.critical))
			c.RegisterFunc("extra", false, static(tt.optional))

			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, 2)
		})
	}
}

func TestChecker_UncheckedIsUnknown(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("core", true, static(StatusHealthy))

	res, ok := c.GetResult("core")
	require.True(t, ok)
	assert.Equal(t, StatusUnknown, res.Status)
	assert.Equal(t, StatusUnknown, c.OverallStatus())
	assert.Equal(t, []string{"core"}, c.Names())
}

func TestChecker_PanicAndTimeout(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("panics", true, func(context.Context) CheckResult { panic("boom") })
	c.Register(&Component{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Check: func(ctx context.Context) CheckResult {
			time.Sleep(time.Second)
			return CheckResult{Status: StatusHealthy}
		},
	})

	results := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, results["panics"].Status)
	assert.Equal(t, "boom", results["panics"].Error)
	assert.Equal(t, "check timed out", results["slow"].Message)
	assert.Equal(t, StatusUnhealthy, c.OverallStatus())
}

func TestTablesCheck(t *testing.T) {
	res := TablesCheck(tables.Default(), 8)(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, tables.Default().Fingerprint(), res.Details["fingerprint"])

	res = TablesCheck(tables.Default(), 2)(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.NotEmpty(t, res.Error)

	set := tables.Default()
	set.Rules = phoneme.MustRuleTable(map[string]phoneme.Rule{"x": phoneme.L("k", "ʘ")})
	res = TablesCheck(set, 8)(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, []string{"ʘ"}, res.Details["unknown_phonemes"])
}

func TestEncoderCheck(t *testing.T) {
	res := EncoderCheck(hybrid.New())(context.Background())
	require.Equal(t, StatusHealthy, res.Status, res.Error)
	for _, s := range hybrid.Strategies() {
		assert.Positive(t, res.Details[s.String()])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = EncoderCheck(hybrid.New())(ctx)
	assert.Equal(t, StatusUnhealthy, res.Status)
}

func TestHistoryCheck(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	res := HistoryCheck(store)(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, history.LatestVersion(), res.Details["schema_version"])

	require.NoError(t, store.Rollback(context.Background()))
	res = HistoryCheck(store)(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)

	require.NoError(t, store.Close())
	res = HistoryCheck(store)(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
}

func TestWritableDirCheck(t *testing.T) {
	res := WritableDirCheck(filepath.Join(t.TempDir(), "logs", "tactiled.log"))(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
}

func TestFuncCheck(t *testing.T) {
	ok := FuncCheck("config valid", func(context.Context) error { return nil })(context.Background())
	assert.Equal(t, StatusHealthy, ok.Status)

	bad := FuncCheck("config valid", func(context.Context) error { return errors.New("nope") })(context.Background())
	assert.Equal(t, StatusUnhealthy, bad.Status)
	assert.Equal(t, "config valid failed", bad.Message)
}
