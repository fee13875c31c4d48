package action

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w31r4/longoverdue/internal/config"
	"github.com/w31r4/longoverdue/internal/process"
	"github.com/w31r4/longoverdue/internal/tools"
)

type fakeFiles struct {
	out string
	err error
}

func (f fakeFiles) ListDeleted(context.Context) (string, error) { return f.out, f.err }

type fakeUnits struct {
	rows  map[string]process.UnitRow
	err   error
	calls [][]string
}

func (f *fakeUnits) ListUnits(_ context.Context, pids []string) ([]process.UnitRow, error) {
	f.calls = append(f.calls, pids)
	if f.err != nil {
		return nil, f.err
	}
	var rows []process.UnitRow
	for _, pid := range pids {
		if r, ok := f.rows[pid]; ok {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

type fakeMatcher struct {
	pids []string
	err  error
	uid  int
}

func (f *fakeMatcher) MatchPIDs(_ context.Context, _ string, uid int) ([]string, error) {
	f.uid = uid
	return f.pids, f.err
}

type fakeManager struct {
	calls []string
	fail  string
}

func (f *fakeManager) Reload(_ context.Context, user bool) error {
	f.calls = append(f.calls, f.ReloadCommand(user))
	if f.fail == "reload" {
		return errors.New("reload failed")
	}
	return nil
}

func (f *fakeManager) Restart(_ context.Context, user bool, units []string) error {
	f.calls = append(f.calls, f.RestartCommand(user, units))
	if f.fail == "restart" {
		return errors.New("restart failed")
	}
	return nil
}

func (f *fakeManager) ReloadCommand(user bool) string {
	if user {
		return "reload --user"
	}
	return "reload"
}

func (f *fakeManager) RestartCommand(user bool, units []string) string {
	s := "restart"
	if user {
		s += " --user"
	}
	return s + " " + strings.Join(units, " ")
}

func pLine(pid, cmd, user string) string {
	return "p" + pid + "\x00R1\x00c" + cmd + "\x00u0\x00L" + user + "\x00"
}

func fLine(name string) string {
	return "fDEL\x00tREG\x00n" + name + "\x00"
}

func lsofOut(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func fixture() (fakeFiles, *fakeUnits) {
	files := fakeFiles{out: lsofOut(
		pLine("100", "httpd", "root"), fLine("/usr/lib/libfoo.so (deleted)"),
		pLine("101", "httpd", "root"), fLine("/usr/lib/libfoo.so (deleted)"), fLine("/usr/lib/libbar.so (deleted)"),
		pLine("50", "dbus-daemon", "messagebus"), fLine("/usr/lib/libdbus.so (deleted)"),
		pLine("200", "emacs", "alice"), fLine("/usr/bin/emacs (deleted)"),
		pLine("201", "sh", "alice"), fLine("/usr/bin/dash (deleted)"),
		pLine("300", "vim", "alice"), fLine("/usr/bin/vim (deleted)"),
		pLine("400", "gnome-shell", "alice"), fLine("/usr/share/icons/foo.cache"),
	)}
	units := &fakeUnits{rows: map[string]process.UnitRow{
		"100": {PID: "100", Unit: "httpd.service", UUnit: "-"},
		"101": {PID: "101", Unit: "httpd.service", UUnit: "-"},
		"50":  {PID: "50", Unit: "dbus.service", UUnit: "-"},
		"200": {PID: "200", Unit: "user@1000.service", UUnit: "emacs.service"},
		"201": {PID: "201", Unit: "user@1000.service", UUnit: "init.scope"},
		"300": {PID: "300", Unit: "session-2.scope", UUnit: "-"},
		"400": {PID: "400", Unit: "user@1000.service", UUnit: "gnome-shell.service"},
	}}
	return files, units
}

func newTestScanner(files FileLister, units UnitLister) *Scanner {
	return NewScanner(files, units, config.Default().Filter(), nil)
}

func TestScan(t *testing.T) {
	files, units := fixture()
	procs, err := newTestScanner(files, units).Scan(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "101", "50", "200", "201", "300"}, process.PIDs(procs))
	require.Len(t, units.calls, 1)
	assert.Equal(t, []string{"100", "101", "50", "200", "201", "300"}, units.calls[0])
	assert.Equal(t, "emacs.service", procs[3].UUnit)
}

func TestScanNothingSkipsUnitLister(t *testing.T) {
	units := &fakeUnits{}
	procs, err := newTestScanner(fakeFiles{}, units).Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, procs)
	assert.Empty(t, units.calls)
}

func TestScanErrors(t *testing.T) {
	files, units := fixture()

	_, err := newTestScanner(fakeFiles{err: errors.New("lsof exited with status 2")}, units).Scan(context.Background(), nil)
	require.Error(t, err)

	_, err = newTestScanner(fakeFiles{out: "p1\x00\x00\n"}, units).Scan(context.Background(), nil)
	var de *process.DecodeError
	require.ErrorAs(t, err, &de)

	// A process that exited between the two queries.
	delete(units.rows, "300")
	_, err = newTestScanner(files, units).Scan(context.Background(), nil)
	require.ErrorIs(t, err, process.ErrUnitMismatch)

	_, err = newTestScanner(files, &fakeUnits{err: errors.New("ps failed")}).Scan(context.Background(), nil)
	require.Error(t, err)
}

func TestComputeRestartSets(t *testing.T) {
	files, units := fixture()
	procs, err := newTestScanner(files, units).Scan(context.Background(), nil)
	require.NoError(t, err)

	sets := ComputeRestartSets(procs, config.Default().NoAutorestart)
	assert.Equal(t, []string{"httpd.service"}, sets.System)
	assert.Equal(t, []string{"emacs.service"}, sets.User)
}

func TestComputeRestartSetsNeverIncludesHeldUnits(t *testing.T) {
	table := config.NoAutorestart{"dbus.service": "reboot required", "gdm.service": "ends the session"}
	var procs []*process.Process
	for i, unit := range []string{"dbus.service", "gdm.service", "sshd.service", "dbus.service"} {
		procs = append(procs, &process.Process{PID: string(rune('1' + i)), Command: "x", Unit: unit, UUnit: "-"})
	}
	sets := ComputeRestartSets(procs, table)
	for _, u := range sets.System {
		_, held := table.Reason(u)
		assert.False(t, held, u)
	}
	assert.Equal(t, []string{"sshd.service"}, sets.System)
}

func TestSelectPlan(t *testing.T) {
	sets := RestartSets{System: []string{"httpd.service"}, User: []string{"emacs.service"}}

	assert.Equal(t, Plan{Scope: ScopeSystem, Units: []string{"httpd.service"}}, SelectPlan(sets, true))
	assert.Equal(t, Plan{Scope: ScopeUser, Units: []string{"emacs.service"}}, SelectPlan(sets, false))

	// Root never falls back to user units and users never touch system units.
	assert.True(t, SelectPlan(RestartSets{User: []string{"emacs.service"}}, true).Empty())
	assert.True(t, SelectPlan(RestartSets{System: []string{"httpd.service"}}, false).Empty())
	assert.Equal(t, "none", SelectPlan(RestartSets{}, true).Scope.String())
}

func TestRestarterRun(t *testing.T) {
	mgr := &fakeManager{}
	var echoed []string
	r := &Restarter{Manager: mgr, Echo: func(cmd string) error {
		echoed = append(echoed, cmd)
		return nil
	}}

	require.NoError(t, r.Run(context.Background(), Plan{Scope: ScopeUser, Units: []string{"a.service", "b.service"}}))
	assert.Equal(t, []string{"reload --user", "restart --user a.service b.service"}, mgr.calls)
	assert.Equal(t, mgr.calls, echoed)

	mgr.calls = nil
	require.NoError(t, r.Run(context.Background(), Plan{Scope: ScopeNone}))
	assert.Empty(t, mgr.calls)
}

func TestRestarterDryRun(t *testing.T) {
	mgr := &fakeManager{}
	var echoed []string
	r := &Restarter{Manager: mgr, DryRun: true, Echo: func(cmd string) error {
		echoed = append(echoed, cmd)
		return nil
	}}
	require.NoError(t, r.Run(context.Background(), Plan{Scope: ScopeSystem, Units: []string{"httpd.service"}}))
	assert.Empty(t, mgr.calls)
	assert.Equal(t, []string{"reload", "restart httpd.service"}, echoed)
}

func TestRestarterStopsOnFailure(t *testing.T) {
	mgr := &fakeManager{fail: "reload"}
	r := &Restarter{Manager: mgr}
	err := r.Run(context.Background(), Plan{Scope: ScopeSystem, Units: []string{"httpd.service"}})
	require.Error(t, err)
	assert.Equal(t, []string{"reload"}, mgr.calls)

	mgr = &fakeManager{fail: "restart"}
	r = &Restarter{Manager: mgr}
	require.Error(t, r.Run(context.Background(), Plan{Scope: ScopeSystem, Units: []string{"httpd.service"}}))
}

func TestCandidates(t *testing.T) {
	files, units := fixture()
	procs, err := newTestScanner(files, units).Scan(context.Background(), nil)
	require.NoError(t, err)
	table := config.Default().NoAutorestart

	system := Candidates(procs, table, ScopeSystem)
	require.Len(t, system, 2)
	assert.Equal(t, Candidate{Unit: "dbus.service", Commands: []string{"dbus-daemon"}, Reason: "reboot required"}, system[0])
	assert.False(t, system[0].Restartable())
	assert.Equal(t, Candidate{Unit: "httpd.service", Commands: []string{"httpd"}}, system[1])
	assert.True(t, system[1].Restartable())

	user := Candidates(procs, table, ScopeUser)
	assert.Equal(t, []Candidate{{Unit: "emacs.service", Commands: []string{"emacs"}}}, user)
}

func TestLookup(t *testing.T) {
	files, units := fixture()
	s := newTestScanner(files, units)

	m := &fakeMatcher{pids: []string{"100", "101", "999"}}
	got, err := s.Lookup(context.Background(), m, "httpd", 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/lib/libbar.so", "/usr/lib/libfoo.so"}, got)
	assert.Equal(t, 1000, m.uid)
	assert.Equal(t, []string{"100", "101"}, units.calls[0])
}

func TestLookupUpToDate(t *testing.T) {
	files, units := fixture()
	got, err := newTestScanner(files, units).Lookup(context.Background(), &fakeMatcher{pids: []string{"400"}}, "gnome-shell", -1)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, units.calls)
}

func TestLookupNoMatch(t *testing.T) {
	files, units := fixture()
	_, err := newTestScanner(files, units).Lookup(context.Background(), &fakeMatcher{err: tools.ErrNoMatch}, "nothing", -1)
	require.ErrorIs(t, err, tools.ErrNoMatch)
}

func TestCheckKernel(t *testing.T) {
	if testingNonLinux() {
		t.Skip("kernel check only runs on linux")
	}
	root := t.TempDir()
	modules := filepath.Join(root, "modules")
	require.NoError(t, os.MkdirAll(filepath.Join(modules, "6.1.0-14-amd64"), 0o755))

	release := func(v string) KernelRelease {
		return func(context.Context) (string, error) { return v, nil }
	}

	st, err := CheckKernel(context.Background(), release("6.1.0-14-amd64"), []string{modules})
	require.NoError(t, err)
	assert.False(t, st.Outdated)

	st, err = CheckKernel(context.Background(), release("6.1.0-13-amd64"), []string{filepath.Join(root, "missing"), modules})
	require.NoError(t, err)
	assert.True(t, st.Outdated)
	assert.Equal(t, "6.1.0-13-amd64", st.Release)

	st, err = CheckKernel(context.Background(), release("6.1.0-13-amd64"), []string{filepath.Join(root, "missing")})
	require.NoError(t, err)
	assert.False(t, st.Outdated, "no module tree at all says nothing about the kernel")

	_, err = CheckKernel(context.Background(), func(context.Context) (string, error) {
		return "", errors.New("uname failed")
	}, []string{modules})
	require.Error(t, err)
}
