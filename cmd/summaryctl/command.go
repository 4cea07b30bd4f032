package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

// errUsage marks a command invoked with bad arguments; usage has already
// been printed.
var errUsage = errors.New("invalid usage")

// Command is one summaryctl subcommand.
type Command struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Run         func(args []string) error
}

// VersionInfo holds build-time version information.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// CommandRegistry dispatches os.Args to registered commands.
type CommandRegistry struct {
	commands map[string]*Command
	order    []string
	stdout   io.Writer
	stderr   io.Writer
	version  VersionInfo
}

func NewCommandRegistry(v VersionInfo, stdout, stderr io.Writer) *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]*Command),
		stdout:   stdout,
		stderr:   stderr,
		version:  v,
	}
}

// Register adds a command. Help lists commands in registration order.
func (r *CommandRegistry) Register(cmd *Command) {
	if _, ok := r.commands[cmd.Name]; !ok {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

// NewFlagSet returns a flag set for cmd that reports errors instead of
// exiting, so commands can be driven from tests.
func (r *CommandRegistry) NewFlagSet(cmd *Command) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	fs.Usage = func() { r.PrintUsage(cmd) }
	return fs
}

// Execute runs the command named by args[0].
func (r *CommandRegistry) Execute(args []string) error {
	if len(args) < 1 {
		r.PrintHelp(r.stderr)
		return fmt.Errorf("no command specified")
	}

	switch args[0] {
	case "help", "-h", "--help":
		r.PrintHelp(r.stdout)
		return nil
	}

	cmd, ok := r.commands[args[0]]
	if !ok {
		r.PrintHelp(r.stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
	err := cmd.Run(args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func (r *CommandRegistry) PrintUsage(cmd *Command) {
	fmt.Fprintf(r.stderr, "%s\n\n", cmd.Description)
	fmt.Fprintf(r.stderr, "USAGE:\n    %s\n\n", cmd.Usage)
	if len(cmd.Examples) > 0 {
		fmt.Fprintln(r.stderr, "EXAMPLES:")
		for _, example := range cmd.Examples {
			fmt.Fprintf(r.stderr, "    %s\n", example)
		}
		fmt.Fprintln(r.stderr)
	}
}

func (r *CommandRegistry) PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "summaryctl - render and check review summaries")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "    summaryctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "COMMANDS:")
	for _, name := range r.order {
		fmt.Fprintf(w, "    %-10s %s\n", name, r.commands[name].Description)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'summaryctl <command> -h' for more information on a command.")
}
