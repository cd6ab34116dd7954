package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"gopkg.in/yaml.v3"

	"github.com/willow-lang/willow/lang/compiler"
	"github.com/willow-lang/willow/lang/value"
)

// instruction is the YAML-rendered form of a single disassembled bytecode
// instruction, for tooling that wants machine-readable disassembly instead
// of the human-readable pseudo-assembly text.
type instruction struct {
	Offset int    `yaml:"offset"`
	Line   int    `yaml:"line"`
	Text   string `yaml:"text"`
}

// Disassemble compiles each file without running it, then prints the
// compiled chunk's bytecode: as pseudo-assembly text by default, or as
// YAML when --yaml is set.
func (c *Cmd) Disassemble(_ context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}

		gc := value.NewGC()
		fn, err := compiler.Compile(gc, string(src))
		if err != nil {
			printError(stdio, fmt.Errorf("%s: %w", path, err))
			return fmt.Errorf("%s: %w", path, errCompile)
		}

		if c.YAML {
			instrs := disassembleToRecords(&fn.Chunk)
			out, err := yaml.Marshal(instrs)
			if err != nil {
				return printError(stdio, fmt.Errorf("%s: %w", path, err))
			}
			fmt.Fprint(stdio.Stdout, string(out))
		} else {
			fmt.Fprint(stdio.Stdout, fn.Chunk.Disassemble(path))
		}
	}
	return nil
}

func disassembleToRecords(chunk *value.Chunk) []instruction {
	var recs []instruction
	for offset := 0; offset < len(chunk.Code); {
		text, next := chunk.DisassembleInstruction(offset)
		line := 0
		if offset < len(chunk.Lines) {
			line = chunk.Lines[offset]
		}
		recs = append(recs, instruction{Offset: offset, Line: line, Text: text})
		offset = next
	}
	return recs
}
