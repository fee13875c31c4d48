// Package config holds the static configuration of a run: which files count
// as stale, which units must never be restarted automatically, which
// collaborators to use, plus the runtime facts (privilege, text encoding)
// that every component needs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/text/encoding"
	"gopkg.in/yaml.v3"

	"github.com/w31r4/longoverdue/internal/process"
)

// EnvConfigPath overrides the config file lookup.
const EnvConfigPath = "LONGOVERDUE_CONFIG"

const (
	ServiceManagerSystemctl = "systemctl"
	ServiceManagerDBus      = "dbus"

	UnitSourcePS     = "ps"
	UnitSourceCgroup = "cgroup"
)

// NoAutorestart maps unit names to the reason they are never restarted automatically.
type NoAutorestart map[string]string

// Reason returns why unit must not be restarted, if it is listed.
func (n NoAutorestart) Reason(unit string) (string, bool) {
	r, ok := n[unit]
	return r, ok
}

// Config is built once at startup and passed to every component.
type Config struct {
	SystemPath        string        `yaml:"system_path"`
	ExcludeNames      []string      `yaml:"exclude_names"`
	ExcludeExtensions []string      `yaml:"exclude_extensions"`
	NoAutorestart     NoAutorestart `yaml:"no_autorestart"`
	ServiceManager    string        `yaml:"service_manager"`
	UnitSource        string        `yaml:"unit_source"`
	KernelCheck       bool          `yaml:"kernel_check"`
	ModuleDirs        []string      `yaml:"module_dirs"`
	ToolTimeout       time.Duration `yaml:"tool_timeout"`

	// Runtime facts, never read from the file.
	EUID     int               `yaml:"-"`
	Encoding encoding.Encoding `yaml:"-"`
	Path     string            `yaml:"-"` // file the config was loaded from, if any
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SystemPath:        "/usr",
		ExcludeNames:      []string{"locale-archive"},
		ExcludeExtensions: []string{".cache"},
		NoAutorestart: NoAutorestart{
			"dbus.service":           "reboot required",
			"systemd-logind.service": "will log all users out",
		},
		ServiceManager: ServiceManagerSystemctl,
		UnitSource:     UnitSourcePS,
		KernelCheck:    true,
		ModuleDirs:     []string{"/usr/lib/modules", "/lib/modules"},
		ToolTimeout:    60 * time.Second,
		EUID:           os.Geteuid(),
		Encoding:       LocaleEncoding(os.Getenv),
	}
}

// Load returns the defaults overlaid with the config file at path. An empty
// path searches the default locations; a missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	candidates := []string{path}
	if !explicit {
		candidates = defaultPaths()
	}

	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && !explicit {
				continue
			}
			return nil, fmt.Errorf("read config %s: %w", p, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", p, err)
		}
		cfg.Path = p
		break
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "longoverdue", "config.yaml"))
	}
	return append(paths, "/etc/longoverdue.yaml")
}

// Validate checks the values a config file can get wrong.
func (c *Config) Validate() error {
	if c.SystemPath == "" || !filepath.IsAbs(c.SystemPath) {
		return fmt.Errorf("system_path must be an absolute path, got %q", c.SystemPath)
	}
	switch c.ServiceManager {
	case ServiceManagerSystemctl, ServiceManagerDBus:
	default:
		return fmt.Errorf("service_manager must be %q or %q, got %q", ServiceManagerSystemctl, ServiceManagerDBus, c.ServiceManager)
	}
	switch c.UnitSource {
	case UnitSourcePS, UnitSourceCgroup:
	default:
		return fmt.Errorf("unit_source must be %q or %q, got %q", UnitSourcePS, UnitSourceCgroup, c.UnitSource)
	}
	if c.ToolTimeout < 0 {
		return fmt.Errorf("tool_timeout must not be negative")
	}
	return nil
}

// Privileged reports whether the run has root privileges.
func (c *Config) Privileged() bool {
	return c.EUID == 0
}

// Filter builds the stale file filter for the listing parser.
func (c *Config) Filter() process.Filter {
	return process.NewFilter(c.SystemPath, c.ExcludeNames, c.ExcludeExtensions)
}

// NoAutorestartUnits returns the listed unit names, sorted.
func (c *Config) NoAutorestartUnits() []string {
	units := make([]string, 0, len(c.NoAutorestart))
	for u := range c.NoAutorestart {
		units = append(units, u)
	}
	sort.Strings(units)
	return units
}
