package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/matthewbaird/reviewsummary/internal/labeldoc"
	"github.com/matthewbaird/reviewsummary/internal/summary"
)

type commands struct {
	registry *CommandRegistry
	stdin    io.Reader
}

func (c *commands) out() io.Writer { return c.registry.stdout }

// parse parses args into fs and rejects positional arguments.
func (c *commands) parse(cmd string, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(c.registry.stderr, "%s: unexpected argument %q\n", cmd, fs.Arg(0))
		fs.Usage()
		return errUsage
	}
	return nil
}

func (c *commands) render(args []string) error {
	cmd := c.registry.commands["render"]
	fs := c.registry.NewFlagSet(cmd)
	dataPath := fs.String("data", "", "data document (JSON or YAML); - reads JSON from stdin")
	labelsPath := fs.String("labels", "", "label document (JSON, YAML or CUE)")
	hideEmpty := fs.Bool("hide-empty", false, "drop fields with no value")
	skip := fs.String("skip", "", "comma-separated keys or dotted paths to leave out")
	collapsible := fs.Bool("collapsible", false, "mark sections collapsible")
	collapsed := fs.Bool("collapsed", false, "start collapsible sections collapsed")
	output := fs.String("output", "json", "output format: json or text")
	if err := c.parse("render", fs, args); err != nil {
		return err
	}
	if *dataPath == "" {
		fmt.Fprintln(c.registry.stderr, "render: -data is required")
		fs.Usage()
		return errUsage
	}
	if *output != "json" && *output != "text" {
		return fmt.Errorf("unknown output format %q", *output)
	}

	data, err := c.readData(*dataPath)
	if err != nil {
		return err
	}
	var labels any
	if *labelsPath != "" {
		canonical, err := labeldoc.Load(*labelsPath)
		if err != nil {
			return err
		}
		labels = json.RawMessage(canonical)
	}

	tree, err := summary.Render(data, labels, summary.Options{
		HideEmptyFields: *hideEmpty,
		SkipKeys:        splitList(*skip),
		Collapsible:     *collapsible,
		Collapsed:       *collapsed,
	})
	if err != nil {
		return err
	}

	if *output == "text" {
		return summary.WriteText(c.out(), tree)
	}
	enc := json.NewEncoder(c.out())
	enc.SetIndent("", "  ")
	return enc.Encode(tree)
}

// readData loads the data document. Stdin is read as JSON; files go through
// labeldoc so YAML answers work too.
func (c *commands) readData(path string) (any, error) {
	if path == "-" {
		b, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return b, nil
	}
	f, err := labeldoc.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data document: %w", err)
	}
	v, err := labeldoc.Decode(src, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func (c *commands) lint(args []string) error {
	cmd := c.registry.commands["lint"]
	fs := c.registry.NewFlagSet(cmd)
	labelsPath := fs.String("labels", "", "label document (JSON, YAML or CUE)")
	if err := c.parse("lint", fs, args); err != nil {
		return err
	}
	if *labelsPath == "" {
		fmt.Fprintln(c.registry.stderr, "lint: -labels is required")
		fs.Usage()
		return errUsage
	}

	canonical, err := labeldoc.Load(*labelsPath)
	if err != nil {
		return err
	}
	warnings, err := summary.Lint(json.RawMessage(canonical))
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintln(c.out(), w)
	}
	if len(warnings) > 0 {
		return fmt.Errorf("%s: %d %s", *labelsPath, len(warnings), plural(len(warnings), "problem", "problems"))
	}
	fmt.Fprintf(c.out(), "%s: ok (%s canonical)\n", *labelsPath, humanize.Bytes(uint64(len(canonical))))
	return nil
}

func (c *commands) convert(args []string) error {
	cmd := c.registry.commands["convert"]
	fs := c.registry.NewFlagSet(cmd)
	labelsPath := fs.String("labels", "", "label document (JSON, YAML or CUE)")
	to := fs.String("to", "json", "output format: json or yaml")
	if err := c.parse("convert", fs, args); err != nil {
		return err
	}
	if *labelsPath == "" {
		fmt.Fprintln(c.registry.stderr, "convert: -labels is required")
		fs.Usage()
		return errUsage
	}
	target, err := labeldoc.ParseFormat(*to)
	if err != nil {
		return err
	}

	canonical, err := labeldoc.Load(*labelsPath)
	if err != nil {
		return err
	}
	v, err := summary.Parse(canonical)
	if err != nil {
		return err
	}
	out, err := labeldoc.Encode(v, target)
	if err != nil {
		return err
	}
	_, err = c.out().Write(out)
	return err
}

func (c *commands) version(args []string) error {
	fs := c.registry.NewFlagSet(c.registry.commands["version"])
	if err := c.parse("version", fs, args); err != nil {
		return err
	}
	v := c.registry.version
	fmt.Fprintf(c.out(), "summaryctl %s (commit %s, built %s)\n", v.Version, v.Commit, v.Date)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
