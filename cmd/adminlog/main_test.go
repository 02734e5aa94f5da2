package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/adminlog/pkg/core"
	"github.com/modoterra/adminlog/pkg/daemon"
)

func resetFlags() {
	configPath = defaultConfig
	urlFlag, originFlag, prefixFlag, localeFlag = "", "", "", ""
	pageSize, autoRefresh, logFile = 0, "", ""
	dumpJSON, dumpQuery = false, ""
	dumpTimeout, infoTimeout = 5*time.Second, 5*time.Second
	configInitOutput, configInitForce = defaultConfig, false
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

type sliceSource []core.LogRecord

func (s sliceSource) Snapshot(context.Context) ([]core.LogRecord, error) {
	return s, nil
}

func startModule(t *testing.T, recs []core.LogRecord) string {
	t.Helper()
	d := daemon.New(daemon.Options{
		AdminPath:     "/svc/admin/ws",
		ServicePrefix: "/svc",
		Module: core.ModuleInfo{
			Name:            "mergeodf",
			Version:         "1.2",
			ServiceURI:      "/lool/mergeodf/",
			AdminServiceURI: "/lool/mergeodf/admin/",
		},
		Source: sliceSource(recs),
	}, nil)
	ts := httptest.NewServer(d.Handler())
	t.Cleanup(func() {
		d.Server().Shutdown()
		ts.Close()
	})
	return ts.URL
}

func TestConfigInitThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adminlog.yaml")

	out, err := execute(t, "config", "init", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Generated")

	_, err = execute(t, "config", "init", "--output", path)
	assert.Error(t, err, "init should refuse to overwrite without --force")

	out, err = execute(t, "config", "validate", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "valid")
}

func TestConfigValidateInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := []byte(`version: 1
client:
  url: http://localhost/ws
  origin: localhost
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	out, err := execute(t, "config", "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "ws:// or wss://")
}

func TestInfoCommand(t *testing.T) {
	base := startModule(t, nil)
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/svc/admin/ws"

	out, err := execute(t, "info", "--url", wsURL, "--prefix", "/svc", "--locale", "zh_TW.UTF-8")
	require.NoError(t, err)
	assert.Contains(t, out, "mergeodf")
	assert.Contains(t, out, "Service URL:   "+base+"/svc/lool/mergeodf/")
	assert.Contains(t, out, "Translations:  "+base+"/svc/lool/mergeodf/admin/js/l10n/zh-TW.json")
}

func TestDumpJSONAndQuery(t *testing.T) {
	recs := []core.LogRecord{
		{Status: true, Timestamp: "2024-01-01 00:00:00", SourceIP: "1.2.3.4", FileName: "ok", FileExt: "ods"},
		{Status: false, Timestamp: "2024-01-02 00:00:00", SourceIP: "5.6.7.8", FileName: "broken", FileExt: "odt"},
	}
	base := startModule(t, recs)
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/svc/admin/ws"

	out, err := execute(t, "dump", "--url", wsURL, "--prefix", "/svc", "--json")
	require.NoError(t, err)
	var got []core.LogRecord
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Len(t, got, 2)

	out, err = execute(t, "dump", "--url", wsURL, "--query", "[?status == `false`].file_name")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names), out)
	assert.Equal(t, []string{"broken"}, names)
}

func TestDumpTable(t *testing.T) {
	recs := []core.LogRecord{
		{Status: true, Timestamp: "2024-01-01 00:00:00", FileName: "report", FileExt: "ods", ToPDF: true},
	}
	base := startModule(t, recs)
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/svc/admin/ws"

	out, err := execute(t, "dump", "--url", wsURL, "--locale", "en")
	require.NoError(t, err)
	for _, want := range []string{"Status", "report", "Success", "Yes", "Showing 1 to 1 of 1 entries"} {
		assert.Contains(t, out, want)
	}
}

func TestDumpEmptyLog(t *testing.T) {
	base := startModule(t, nil)
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/svc/admin/ws"

	out, err := execute(t, "dump", "--url", wsURL, "--locale", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "No data available in table")
}

func TestMissingURL(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "info")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url")
}

func TestOriginFromURL(t *testing.T) {
	cases := map[string]string{
		"ws://localhost:9980/svc/ws": "http://localhost:9980",
		"wss://example.com/admin":    "https://example.com",
		"not a url":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, originFromURL(in), "originFromURL(%q)", in)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "adminlog "), out)
}
