package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapetech/playlist-dedup/internal/dedup"
	"github.com/snapetech/playlist-dedup/internal/quality"
)

func gauges(t *testing.T, r *Run) map[string]float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
			}
			out[name] = m.GetGauge().GetValue()
		}
	}
	return out
}

func TestRun_Observe(t *testing.T) {
	res := dedup.New(quality.Default).DeduplicateNames([]string{
		"A HD", "A FHD", "A SD", "B 4K", "B 4K+", "C",
	})
	r := NewRun()
	r.Observe(res, true)
	start := time.Unix(1700000000, 0)
	r.Finish(start, start.Add(1500*time.Millisecond), true)

	got := gauges(t, r)
	assert.Equal(t, 6.0, got["playlist_dedup_records"])
	assert.Equal(t, 2.0, got["playlist_dedup_duplicate_groups"])
	assert.Equal(t, 3.0, got["playlist_dedup_removed_entries"])
	assert.Equal(t, 3.0, got["playlist_dedup_kept_entries"])
	assert.Equal(t, 1.0, got["playlist_dedup_removed_entries_by_tier{tier=HD}"])
	assert.Equal(t, 1.0, got["playlist_dedup_removed_entries_by_tier{tier=SD}"])
	assert.Equal(t, 1.0, got["playlist_dedup_removed_entries_by_tier{tier=4K}"])
	assert.Equal(t, 1.5, got["playlist_dedup_run_duration_seconds"])
	assert.Equal(t, 1700000001.0, got["playlist_dedup_last_run_timestamp_seconds"])
	assert.Equal(t, 1.0, got["playlist_dedup_last_run_success"])
	assert.Equal(t, 1.0, got["playlist_dedup_last_run_dry_run"])
}

func TestRun_WriteFile(t *testing.T) {
	r := NewRun()
	r.Observe(dedup.Result{Summary: dedup.Summary{Records: 4, Kept: 4}}, false)
	r.Finish(time.Now(), time.Now(), false)

	path := filepath.Join(t.TempDir(), "playlist_dedup.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE playlist_dedup_records gauge")
	assert.Contains(t, text, "playlist_dedup_records 4")
	assert.Contains(t, text, "playlist_dedup_last_run_success 0")
}

func TestRun_WriteFileMissingDir(t *testing.T) {
	err := NewRun().WriteFile(filepath.Join(t.TempDir(), "nope", "x.prom"))
	assert.Error(t, err)
}
