package cli

import "runtime"

func testingLinux() bool {
	return runtime.GOOS == "linux"
}
