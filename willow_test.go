package willow_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/willow-lang/willow/internal/filetest"
	"github.com/willow-lang/willow/lang/vm"
)

var testUpdateScriptTests = flag.Bool("test.update-script-tests", false, "If set, replace expected script test results with actual results.")

// TestScripts runs every testdata/in/*.willow program against a fresh VM
// and diffs its stdout and (if the program fails) its error text against
// the golden files in testdata/out, via internal/filetest.
func TestScripts(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".willow") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}

			var out bytes.Buffer
			m := vm.New()
			m.Stdout = &out

			var errText string
			if _, runErr := m.Interpret(string(src)); runErr != nil {
				errText = runErr.Error() + "\n"
			}

			filetest.DiffOutput(t, fi, out.String(), resultDir, testUpdateScriptTests)
			filetest.DiffErrors(t, fi, errText, resultDir, testUpdateScriptTests)
		})
	}
}
