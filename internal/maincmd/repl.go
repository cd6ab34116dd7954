package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/willow-lang/willow/lang/vm"
)

// Repl starts an interactive read-eval-print loop: one persistent VM across
// every line of input, so globals declared in an earlier line stay visible
// to later ones. A compile or runtime error is reported but doesn't exit
// the loop; only EOF on stdin (or context cancellation) does.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, _ []string) error {
	cfg, err := c.vmConfig()
	if err != nil {
		return printError(stdio, err)
	}

	m := vm.NewWithConfig(cfg)
	m.Stdout = stdio.Stdout
	m.Stderr = stdio.Stderr
	m.TraceExecution = c.Trace

	sc := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !sc.Scan() {
			return sc.Err()
		}

		if _, err := m.Interpret(sc.Text()); err != nil {
			printError(stdio, err)
		}
	}
}
