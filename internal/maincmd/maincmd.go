package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"

	"github.com/willow-lang/willow/lang/vm"
)

const binName = "willow"

// sysexits-style exit codes: 0 success, 65 a compile (data) error, 70 an
// internal/runtime error.
const (
	exitOK           = mainer.ExitCode(0)
	exitCompileError = mainer.ExitCode(65)
	exitRuntimeError = mainer.ExitCode(70)
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...] [-- <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and all-in-one tool for the %[1]s programming language.

The <command> can be one of:
       run                       Compile and execute a source file.
       repl                      Start an interactive read-eval-print
                                 loop, reusing one persistent VM across
                                 inputs.
       tokenize                  Execute the scanner phase of the
                                 compilation and print the resulting
                                 tokens.
       disassemble               Compile a source file and print its
                                 bytecode in pseudo-assembly form.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --trace                   Enable execution tracing (one line per
                                 instruction, to stderr).
       --yaml                    For the disassemble command, emit YAML
                                 instead of the text pseudo-assembly form.
       --gc-growth-factor        Multiplier applied to live bytes to
                                 compute the next GC threshold (default 2).
       --gc-initial-bytes        Bytes allocated before the first GC runs
                                 (default 1048576).

Every flag can also be set with a %[1]sUPPER_SNAKE-cased WILLOW_
environment variable, e.g. WILLOW_GC_GROWTH_FACTOR.

More information on the %[1]s repository:
       https://github.com/willow-lang/willow
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Trace bool `flag:"trace"`
	YAML  bool `flag:"yaml"`

	GCGrowthFactor int64 `flag:"gc-growth-factor"`
	GCInitialBytes int64 `flag:"gc-initial-bytes"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}

	if (cmdName == "tokenize" || cmdName == "run" || cmdName == "disassemble") && len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: at least one file must be provided", cmdName)
	}

	if c.flags["yaml"] && cmdName != "disassemble" {
		return fmt.Errorf("%s: invalid flag 'yaml'", cmdName)
	}

	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

// vmConfig loads GC tuning from the environment (WILLOW_GC_* per
// github.com/caarlos0/env/v6's envDefault tags on vm.Config) and lets this
// command's own --gc-* flags, when set, override it.
func (c *Cmd) vmConfig() (vm.Config, error) {
	cfg, err := vm.ConfigFromEnv()
	if err != nil {
		return vm.Config{}, err
	}
	if c.GCGrowthFactor > 0 {
		cfg.GCGrowthFactor = c.GCGrowthFactor
	}
	if c.GCInitialBytes > 0 {
		cfg.GCInitialBytes = c.GCInitialBytes
	}
	return cfg, nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   true,
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		// each command takes care of printing its errors; translate the
		// failure kind to the matching sysexits-style code.
		switch {
		case errors.Is(err, errCompile):
			return exitCompileError
		case errors.Is(err, errRuntime):
			return exitRuntimeError
		default:
			return mainer.Failure
		}
	}
	return exitOK
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
