package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/willow-lang/willow/lang/vm"
)

// Run compiles and executes each source file in turn against a fresh VM,
// printing any error to stderr and stopping at the first failure.
func (c *Cmd) Run(_ context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := c.vmConfig()
	if err != nil {
		return printError(stdio, err)
	}

	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}

		m := vm.NewWithConfig(cfg)
		m.Stdout = stdio.Stdout
		m.Stderr = stdio.Stderr
		m.TraceExecution = c.Trace

		if _, err := m.Interpret(string(src)); err != nil {
			printError(stdio, fmt.Errorf("%s: %w", path, err))
			switch {
			case errors.Is(err, vm.ErrCompile):
				return fmt.Errorf("%s: %w", path, errCompile)
			case errors.Is(err, vm.ErrRuntime):
				return fmt.Errorf("%s: %w", path, errRuntime)
			default:
				return err
			}
		}
	}
	return nil
}
