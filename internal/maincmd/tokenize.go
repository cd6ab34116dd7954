package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/willow-lang/willow/lang/scanner"
	"github.com/willow-lang/willow/lang/token"
)

// Tokenize runs only the scanner phase of compilation over each file and
// prints the resulting token stream, one token per line, to stdout.
// Scanning errors are printed to stderr but don't stop the remaining files.
func (c *Cmd) Tokenize(_ context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			printError(stdio, fmt.Errorf("%s: %w", path, err))
			failed = true
			continue
		}

		sc := scanner.New(string(src))
		for {
			tok := sc.Scan()
			fmt.Fprintf(stdio.Stdout, "%4d %-14s %q\n", tok.Line, tok.Kind, tok.Lexeme)
			if tok.Kind == token.EOF {
				break
			}
		}

		if errs := sc.Errors(); len(errs) > 0 {
			errs.Sort()
			printError(stdio, fmt.Errorf("%s: %w", path, errs.Err()))
			failed = true
		}
	}

	if failed {
		return errCompile
	}
	return nil
}
