package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronos/internal/config"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chronos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestAgendaPrintsSeededItems(t *testing.T) {
	path := writeConfig(t, "timezone: UTC\nseed_sample: true\n")

	out, err := runCLI(t, "agenda", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(3 items)")
	assert.Less(t, strings.Index(out, "Design Sync"), strings.Index(out, "Submit Report"))
}

func TestAgendaRejectsBadDate(t *testing.T) {
	path := writeConfig(t, "timezone: UTC\n")
	_, err := runCLI(t, "agenda", "tomorrow", "--config", path)
	assert.Error(t, err)
}

func TestVaultAndMonth(t *testing.T) {
	path := writeConfig(t, "timezone: UTC\nseed_sample: true\n")

	out, err := runCLI(t, "vault", "--config", path)
	require.NoError(t, err)
	for _, title := range []string{"Design Sync", "Update UI Components", "Project Launch", "Submit Report"} {
		assert.Contains(t, out, title)
	}

	out, err = runCLI(t, "month", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "remaining")

	_, err = runCLI(t, "month", "2024/01", "--config", path)
	assert.Error(t, err)
}

func TestExportWritesCalendar(t *testing.T) {
	path := writeConfig(t, "timezone: UTC\nseed_sample: true\n")

	out, err := runCLI(t, "export", "--config", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
}

func TestFirstRunWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.yaml")

	_, err := runCLI(t, "vault", "--config", path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestBuildStoreReusesImporterOnRefresh(t *testing.T) {
	dir := t.TempDir()
	feed := filepath.Join(dir, "todo.ics")
	body := strings.Join([]string{
		"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN",
		"BEGIN:VTODO", "UID:inbox", "SUMMARY:Triage inbox", "END:VTODO",
		"END:VCALENDAR", "",
	}, "\r\n")
	require.NoError(t, os.WriteFile(feed, []byte(body), 0o600))

	conf := config.DefaultConfig()
	conf.Timezone = "UTC"
	conf.SeedSample = false
	conf.CacheDir = filepath.Join(dir, "cache")
	conf.ICS = []config.ICSConfig{{ID: "local", URL: feed}}

	store, refresher, err := buildStore(context.Background(), conf)
	require.NoError(t, err)
	require.NotNil(t, refresher)
	require.Equal(t, 1, store.Len())

	stats, err := refresher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	assert.Zero(t, stats.Added)
	assert.Equal(t, 1, store.Len())

	conf.ICS = nil
	_, refresher, err = buildStore(context.Background(), conf)
	require.NoError(t, err)
	assert.Nil(t, refresher)
}
