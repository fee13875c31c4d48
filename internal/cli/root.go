// Package cli wires the commands of the longoverdue binary.
package cli

import (
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/w31r4/longoverdue/internal/action"
	"github.com/w31r4/longoverdue/internal/config"
	"github.com/w31r4/longoverdue/internal/logutil"
	"github.com/w31r4/longoverdue/internal/report"
	"github.com/w31r4/longoverdue/internal/tools"
)

func NewRoot(version string) *cobra.Command {
	opts := &rootOptions{}
	list := &listOptions{}
	cmd := &cobra.Command{
		Use:           "longoverdue",
		Short:         "Find processes running outdated code and restart their services",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			return runList(cmd.Context(), e, *list)
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate("longoverdue {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: $"+config.EnvConfigPath+", then the user and system config)")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", getenvBool("NO_COLOR"), "Disable colored output")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", getenvBool(logutil.EnvDebug), "Log tool invocations to stderr")
	bindListFlags(cmd, list)

	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newRestartCmd(opts))
	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newVersionCmd(version))

	return cmd
}

type rootOptions struct {
	configPath string
	noColor    bool
	debug      bool
}

// env is everything a command needs, built once per run.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	stdin   io.Reader
	noColor bool

	scanner *action.Scanner
	matcher action.Matcher
	manager action.ServiceManager
	kernel  action.KernelRelease
}

func newEnv(cmd *cobra.Command, opts *rootOptions) (*env, error) {
	log := logutil.New(cmd.ErrOrStderr(), opts.debug)
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		log.Debug("loaded config", "path", cfg.Path)
	}

	kit := tools.NewKit(cfg, log)
	var units action.UnitLister = kit
	if cfg.UnitSource == config.UnitSourceCgroup {
		units = tools.CgroupUnits{Root: "/"}
	}

	var manager action.ServiceManager
	if cfg.ServiceManager == config.ServiceManagerDBus {
		manager = tools.NewDBus(log)
	} else {
		manager = tools.NewSystemctl(tools.ExecRunner{Stderr: cmd.ErrOrStderr()}, log)
	}

	e := &env{
		cfg:     cfg,
		log:     log,
		stdout:  cmd.OutOrStdout(),
		stderr:  cmd.ErrOrStderr(),
		stdin:   cmd.InOrStdin(),
		noColor: opts.noColor,
		scanner: action.NewScanner(kit, units, cfg.Filter(), log),
		matcher: kit,
		manager: manager,
	}
	if cfg.KernelCheck {
		e.kernel = action.HostKernelRelease
	}
	return e, nil
}

func (e *env) renderer(verbose bool) *report.Renderer {
	return report.NewRenderer(e.stdout, verbose, e.noColor)
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), "longoverdue "+version+"\n")
			return err
		},
	}
}

func getenvBool(k string) bool {
	v, ok := os.LookupEnv(k)
	if !ok {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	// NO_COLOR counts when set to anything non-empty.
	return v != ""
}
