package maincmd

import "errors"

// errCompile and errRuntime let Main translate a command's failure into the
// matching sysexits-style code without each command file needing to know
// about mainer.ExitCode itself.
var (
	errCompile = errors.New("compile error")
	errRuntime = errors.New("runtime error")
)
