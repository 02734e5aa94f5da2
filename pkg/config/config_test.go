package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidConfig(t *testing.T) {
	yaml := `
version: 1
client:
  url: "ws://localhost:9980${prefix}/admin/ws"
  origin: http://localhost:9980
  service_prefix: /svc
  locale: zh-TW
  page_size: 25
  auto_refresh: "@every 30s"
daemon:
  listen: localhost:9980
  service_prefix: /svc
  admin_path: "${prefix}/admin/ws"
  module:
    name: mergeodf
    service_uri: /lool/mergeodf/
    admin_service_uri: /lool/mergeodf/admin/
  records: /var/lib/adminlog/records.jsonl
  retention: 720h
`
	c, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, 1, c.Version)
	assert.Equal(t, "ws://localhost:9980/svc/admin/ws", c.Client.URL, "client url interpolation")
	assert.Equal(t, "/svc/admin/ws", c.Daemon.AdminPath, "admin path interpolation")
	assert.Equal(t, 25, c.Client.PageSize)

	mi := c.Daemon.Module.ModuleInfo()
	assert.Equal(t, "/lool/mergeodf/", mi.ServiceURI)
	assert.Equal(t, "/lool/mergeodf/admin/", mi.AdminServiceURI)

	ret, err := c.Daemon.RetentionDuration()
	require.NoError(t, err)
	assert.Equal(t, 720*time.Hour, ret)

	assert.Empty(t, Validate(c))
}

func TestInterpolationOriginAndEnv(t *testing.T) {
	t.Setenv("ADMINLOG_TOKEN", "s3cret")
	yaml := `
version: 1
client:
  url: "ws://${ADMINLOG_HOST_UNSET}x/ws"
  origin: http://example.com
  headers:
    Origin: "${origin}"
    Authorization: "Bearer ${ADMINLOG_TOKEN}"
`
	c, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "ws://x/ws", c.Client.URL)
	assert.Equal(t, "http://example.com", c.Client.Headers["Origin"])
	assert.Equal(t, "Bearer s3cret", c.Client.Headers["Authorization"])
}

func TestInterpolationKeepsBareDollar(t *testing.T) {
	t.Setenv("abc", "leaked")
	t.Setenv("HOME", "/home/leaked")
	yaml := `
version: 1
client:
  url: "ws://h/ws"
  origin: http://h
  headers:
    Authorization: "Bearer x$abc$HOME"
    X-Price: "$5"
daemon:
  records: "/srv/$HOME/records.jsonl"
`
	c, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "Bearer x$abc$HOME", c.Client.Headers["Authorization"])
	assert.Equal(t, "$5", c.Client.Headers["X-Price"])
	assert.Equal(t, "/srv/$HOME/records.jsonl", c.Daemon.Records)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("version: ["))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	interpolate(c)
	assert.Empty(t, Validate(c))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adminlog.yaml")
	require.NoError(t, Save(Default(), path))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, c.FilePath)
	assert.Equal(t, "ws://localhost:9980/svc/admin/ws", c.Client.URL)
	assert.Equal(t, "mergeodf", c.Daemon.Module.Name)
	assert.Equal(t, "127.0.0.1:9980", c.Daemon.Listen)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestValidateVersionMustBe1(t *testing.T) {
	c := Default()
	c.Version = 2
	assertHasError(t, Validate(c), "version must be 1")
}

func TestValidateEmptyConfig(t *testing.T) {
	c := &Config{Version: 1}
	assertHasError(t, Validate(c), "client or a daemon section")
}

func TestValidateClientURLScheme(t *testing.T) {
	for _, u := range []string{"http://localhost/ws", "localhost:9980", "ws://"} {
		c := &Config{Version: 1, Client: ClientConfig{URL: u, Origin: "http://localhost"}}
		assertHasError(t, Validate(c), "ws:// or wss://")
	}
}

func TestValidateClientOrigin(t *testing.T) {
	cases := map[string]string{
		"":                       "origin is required",
		"localhost":              "scheme://host",
		"http://localhost/app":   "scheme://host",
		"http://localhost:9980/": "must not end with a slash",
	}
	for origin, want := range cases {
		c := &Config{Version: 1, Client: ClientConfig{URL: "ws://localhost/ws", Origin: origin}}
		assertHasError(t, Validate(c), want)
	}
}

func TestValidateServicePrefix(t *testing.T) {
	for _, p := range []string{"svc", "/svc/"} {
		c := &Config{Version: 1, Client: ClientConfig{URL: "ws://h/ws", Origin: "http://h", ServicePrefix: p}}
		assertHasError(t, Validate(c), "service_prefix must")
	}
	for _, p := range []string{"", "/svc", "/a/b"} {
		c := &Config{Version: 1, Client: ClientConfig{URL: "ws://h/ws", Origin: "http://h", ServicePrefix: p}}
		assert.Empty(t, Validate(c), "prefix=%q", p)
	}
}

func TestValidateAutoRefresh(t *testing.T) {
	c := &Config{Version: 1, Client: ClientConfig{URL: "ws://h/ws", Origin: "http://h", AutoRefresh: "every now and then"}}
	assertHasError(t, Validate(c), "auto_refresh")

	for _, spec := range []string{"@every 10s", "*/5 * * * *", "@hourly"} {
		c.Client.AutoRefresh = spec
		assert.Empty(t, Validate(c), "auto_refresh=%q", spec)
	}
}

func TestValidateLocale(t *testing.T) {
	c := &Config{Version: 1, Client: ClientConfig{URL: "ws://h/ws", Origin: "http://h", Locale: "not a locale!"}}
	assertHasError(t, Validate(c), "locale")
}

func TestValidateDaemonListen(t *testing.T) {
	for _, listen := range []string{"", "9980", "127.0.0.1", "127.0.0.1:"} {
		c := Default()
		interpolate(c)
		c.Daemon.Listen = listen
		assertHasError(t, Validate(c), "listen")
	}
	for _, listen := range []string{"127.0.0.1:9980", ":9980", "[::1]:9980", "localhost:9980"} {
		c := Default()
		interpolate(c)
		c.Daemon.Listen = listen
		assert.Empty(t, Validate(c), "listen=%q", listen)
	}
}

func TestValidateDaemonModule(t *testing.T) {
	c := Default()
	interpolate(c)
	c.Daemon.Module.ServiceURI = "lool/"
	c.Daemon.Module.AdminServiceURI = "/lool/admin"
	errs := Validate(c)
	assertHasError(t, errs, "service_uri must start with /")
	assertHasError(t, errs, "admin_service_uri must start and end with /")
}

func TestValidateDaemonRecordsAndRetention(t *testing.T) {
	c := Default()
	interpolate(c)
	c.Daemon.Records = ""
	c.Daemon.Retention = "a year"
	errs := Validate(c)
	assertHasError(t, errs, "records is required")
	assertHasError(t, errs, "retention")
}

func TestRetentionDefault(t *testing.T) {
	d := DaemonConfig{}
	got, err := d.RetentionDuration()
	require.NoError(t, err)
	assert.Equal(t, DefaultRetention, got)
}

func assertHasError(t *testing.T, errs []error, substr string) {
	t.Helper()
	for _, e := range errs {
		if strings.Contains(e.Error(), substr) {
			return
		}
	}
	t.Errorf("expected error containing %q, got %v", substr, errs)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adminlog.toml")
	content := `version = 1

[client]
url = "wss://reports.example.com${prefix}/admin/ws"
origin = "https://reports.example.com"
service_prefix = "/svc"
auto_refresh = "@every 1m"

[daemon]
listen = "127.0.0.1:9980"
service_prefix = "/svc"
admin_path = "${prefix}/admin/ws"
records = "/tmp/records.jsonl"

[daemon.module]
name = "mergeodf"
service_uri = "/lool/mergeodf/"
admin_service_uri = "/lool/mergeodf/admin/"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://reports.example.com/svc/admin/ws", c.Client.URL)
	assert.Equal(t, "/lool/mergeodf/admin/", c.Daemon.Module.AdminServiceURI)
	assert.Empty(t, Validate(c))
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adminlog.toml")
	require.NoError(t, Save(Default(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[daemon.module]")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/svc/admin/ws", c.Daemon.AdminPath)
}
