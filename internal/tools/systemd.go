package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/w31r4/longoverdue/internal/logutil"
)

// Systemctl drives the service manager through the systemctl binary.
type Systemctl struct {
	Runner Runner
	Log    *slog.Logger
}

// NewSystemctl returns a Systemctl whose errors are shown on stderr.
func NewSystemctl(runner Runner, log *slog.Logger) *Systemctl {
	return &Systemctl{Runner: runner, Log: logutil.Component(log, "systemctl")}
}

func systemctlArgs(user bool, args ...string) []string {
	if user {
		return append([]string{"--user"}, args...)
	}
	return args
}

// ReloadCommand is the command line Reload runs.
func (s *Systemctl) ReloadCommand(user bool) string {
	return "systemctl " + strings.Join(systemctlArgs(user, "daemon-reload"), " ")
}

// RestartCommand is the command line Restart runs.
func (s *Systemctl) RestartCommand(user bool, units []string) string {
	return "systemctl " + strings.Join(systemctlArgs(user, append([]string{"restart"}, units...)...), " ")
}

func (s *Systemctl) Reload(ctx context.Context, user bool) error {
	_, err := s.Runner.Run(ctx, "systemctl", systemctlArgs(user, "daemon-reload")...)
	return err
}

func (s *Systemctl) Restart(ctx context.Context, user bool, units []string) error {
	if len(units) == 0 {
		return nil
	}
	_, err := s.Runner.Run(ctx, "systemctl", systemctlArgs(user, append([]string{"restart"}, units...)...)...)
	return err
}

// DBus drives systemd over D-Bus, on the system bus or the caller's user bus.
type DBus struct {
	Log *slog.Logger
}

// NewDBus returns a D-Bus service manager.
func NewDBus(log *slog.Logger) *DBus {
	return &DBus{Log: logutil.Component(log, "dbus")}
}

func (d *DBus) connect(ctx context.Context, user bool) (*dbus.Conn, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if user {
		conn, err = dbus.NewUserConnectionContext(ctx)
	} else {
		conn, err = dbus.NewSystemConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return conn, nil
}

func (d *DBus) ReloadCommand(user bool) string {
	return busName(user) + ": Reload"
}

func (d *DBus) RestartCommand(user bool, units []string) string {
	return busName(user) + ": RestartUnit " + strings.Join(units, " ")
}

func busName(user bool) string {
	if user {
		return "systemd (user bus)"
	}
	return "systemd (system bus)"
}

func (d *DBus) Reload(ctx context.Context, user bool) error {
	conn, err := d.connect(ctx, user)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	return nil
}

// Restart queues a restart job per unit and waits for each job to finish.
// It stops at the first unit that fails.
func (d *DBus) Restart(ctx context.Context, user bool, units []string) error {
	if len(units) == 0 {
		return nil
	}
	conn, err := d.connect(ctx, user)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, unit := range units {
		done := make(chan string, 1)
		if _, err := conn.RestartUnitContext(ctx, unit, "replace", done); err != nil {
			return fmt.Errorf("failed to restart %s: %w", unit, err)
		}
		select {
		case result := <-done:
			if result != "done" {
				return fmt.Errorf("failed to restart %s: job %s", unit, result)
			}
			if d.Log != nil {
				d.Log.Debug("restarted unit", "unit", unit)
			}
		case <-ctx.Done():
			return fmt.Errorf("failed to restart %s: %w", unit, ctx.Err())
		}
	}
	return nil
}
