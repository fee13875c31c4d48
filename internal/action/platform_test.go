package action

import "runtime"

func testingNonLinux() bool {
	return runtime.GOOS != "linux"
}
