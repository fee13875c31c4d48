package action

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// KernelStatus describes whether the running kernel is still installed.
type KernelStatus struct {
	Release  string
	Outdated bool
}

// KernelRelease returns the release of the running kernel.
type KernelRelease func(ctx context.Context) (string, error)

// HostKernelRelease asks the host for its kernel release.
func HostKernelRelease(ctx context.Context) (string, error) {
	return host.KernelVersionWithContext(ctx)
}

// CheckKernel reports the running kernel as outdated when none of the module
// directories holds its modules any more, which is what a kernel package
// upgrade leaves behind. If no module directory exists at all (containers)
// nothing can be said and the kernel is not reported.
func CheckKernel(ctx context.Context, release KernelRelease, moduleDirs []string) (KernelStatus, error) {
	if runtime.GOOS != "linux" || release == nil {
		return KernelStatus{}, nil
	}
	rel, err := release(ctx)
	if err != nil {
		return KernelStatus{}, err
	}
	status := KernelStatus{Release: rel}
	if rel == "" {
		return status, nil
	}

	anyDir := false
	for _, dir := range moduleDirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		anyDir = true
		_, err := os.Stat(filepath.Join(dir, rel))
		if err == nil {
			return status, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return status, err
		}
	}
	status.Outdated = anyDir
	return status, nil
}
