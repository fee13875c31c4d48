package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/usr", cfg.SystemPath)

	reason, ok := cfg.NoAutorestart.Reason("dbus.service")
	assert.True(t, ok)
	assert.Equal(t, "reboot required", reason)

	reason, ok = cfg.NoAutorestart.Reason("systemd-logind.service")
	assert.True(t, ok)
	assert.Equal(t, "will log all users out", reason)

	_, ok = cfg.NoAutorestart.Reason("httpd.service")
	assert.False(t, ok)

	assert.Equal(t, []string{"dbus.service", "systemd-logind.service"}, cfg.NoAutorestartUnits())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
system_path: /opt
exclude_names: [ld.so.cache]
exclude_extensions: [.pyc]
no_autorestart:
  gdm.service: will end the graphical session
service_manager: dbus
unit_source: cgroup
kernel_check: false
tool_timeout: 5s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "/opt", cfg.SystemPath)
	assert.Equal(t, []string{"ld.so.cache"}, cfg.ExcludeNames)
	assert.Equal(t, []string{".pyc"}, cfg.ExcludeExtensions)
	assert.Equal(t, ServiceManagerDBus, cfg.ServiceManager)
	assert.Equal(t, UnitSourceCgroup, cfg.UnitSource)
	assert.False(t, cfg.KernelCheck)
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout)

	// Listed units are added to the built-in table.
	_, ok := cfg.NoAutorestart.Reason("gdm.service")
	assert.True(t, ok)
	_, ok = cfg.NoAutorestart.Reason("dbus.service")
	assert.True(t, ok)

	f := cfg.Filter()
	assert.True(t, f.Keep("/opt/lib/libfoo.so"))
	assert.False(t, f.Keep("/opt/lib/ld.so.cache"))
	assert.False(t, f.Keep("/opt/lib/python/x.pyc"))
	assert.True(t, f.Keep("/opt/share/icons/icon-theme.cache"))
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "system_path: /usr/local\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/usr/local", cfg.SystemPath)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "RelativeSystemPath", body: "system_path: usr\n"},
		{name: "UnknownServiceManager", body: "service_manager: upstart\n"},
		{name: "UnknownUnitSource", body: "unit_source: proc\n"},
		{name: "NegativeTimeout", body: "tool_timeout: -1s\n"},
		{name: "Malformed", body: "system_path: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestPrivileged(t *testing.T) {
	cfg := Default()
	cfg.EUID = 0
	assert.True(t, cfg.Privileged())
	cfg.EUID = 1000
	assert.False(t, cfg.Privileged())
}

func TestLocaleEncoding(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	assert.Equal(t, unicode.UTF8, LocaleEncoding(env(nil)))
	assert.Equal(t, unicode.UTF8, LocaleEncoding(env(map[string]string{"LANG": "en_US.UTF-8"})))
	assert.Equal(t, unicode.UTF8, LocaleEncoding(env(map[string]string{"LANG": "C"})))
	assert.Equal(t, charmap.ISO8859_1, LocaleEncoding(env(map[string]string{"LANG": "de_DE.ISO-8859-1"})))
	assert.Equal(t, charmap.ISO8859_15, LocaleEncoding(env(map[string]string{"LANG": "fr_FR.ISO-8859-15@euro"})))
	assert.Equal(t, charmap.KOI8R, LocaleEncoding(env(map[string]string{
		"LC_ALL": "ru_RU.KOI8-R",
		"LANG":   "en_US.UTF-8",
	})))
}

func TestDecodeOutput(t *testing.T) {
	s, err := DecodeOutput(charmap.ISO8859_1, []byte{'/', 'u', 's', 'r', '/', 0xe9})
	require.NoError(t, err)
	assert.Equal(t, "/usr/é", s)

	s, err = DecodeOutput(unicode.UTF8, []byte("/usr/é"))
	require.NoError(t, err)
	assert.Equal(t, "/usr/é", s)
}
