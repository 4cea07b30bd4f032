// Command summaryctl renders review summaries and checks label documents
// from the command line.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := NewCommandRegistry(VersionInfo{Version: version, Commit: commit, Date: date}, stdout, stderr)
	registerCommands(r, stdin)
	if err := r.Execute(args); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func registerCommands(r *CommandRegistry, stdin io.Reader) {
	c := &commands{registry: r, stdin: stdin}

	r.Register(&Command{
		Name:        "render",
		Description: "Render a data document against a label document",
		Usage:       "summaryctl render -data <file|-> -labels <file> [-hide-empty] [-skip a,b] [-collapsible] [-collapsed] [-output json|text]",
		Examples: []string{
			"summaryctl render -data answers.json -labels labels.yaml",
			"summaryctl render -data - -labels labels.cue -output text < answers.json",
			"summaryctl render -data answers.json -labels labels.json -skip ssn,Step1.notes -hide-empty",
		},
		Run: c.render,
	})
	r.Register(&Command{
		Name:        "lint",
		Description: "Report label document entries a render would ignore",
		Usage:       "summaryctl lint -labels <file>",
		Examples:    []string{"summaryctl lint -labels labels.cue"},
		Run:         c.lint,
	})
	r.Register(&Command{
		Name:        "convert",
		Description: "Convert a label document between JSON, YAML and CUE input",
		Usage:       "summaryctl convert -labels <file> [-to json|yaml]",
		Examples: []string{
			"summaryctl convert -labels labels.cue",
			"summaryctl convert -labels labels.json -to yaml",
		},
		Run: c.convert,
	})
	r.Register(&Command{
		Name:        "version",
		Description: "Print version information",
		Usage:       "summaryctl version",
		Run:         c.version,
	})
}
