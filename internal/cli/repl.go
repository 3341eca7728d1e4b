package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/bindlab/internal/env"
	"github.com/roach88/bindlab/internal/harness"
	"github.com/roach88/bindlab/internal/heap"
	"github.com/roach88/bindlab/internal/render"
	"github.com/roach88/bindlab/internal/value"
)

const (
	replPrompt  = "bindlab> "
	historyFile = ".bindlab_history"
)

const replHelp = `Statements:
  let a = [1, 2]    const c = {k: 1}    a = 3
  a.push(4)         a.k = "v"           a[0] = 9
  print a           a === b             a, a.k, a[0]
  {  }              collect             # note
Commands:
  :names            list visible bindings
  :typeof NAME      typeof label of a binding
  :aliases NAME     bindings sharing NAME's aggregate
  :live             live aggregate count
  :help             this text
  :quit             leave the session`

// Session evaluates REPL input against one long-lived environment.
// Events are written to out as transcript lines.
type Session struct {
	runner *harness.Runner
	out    io.Writer
}

// NewSession creates a session with a fresh store and environment.
func NewSession(out io.Writer, logger *slog.Logger) *Session {
	store := heap.New(heap.WithLogger(logger))
	e := env.New(store,
		env.WithSink(env.NewTextSink(out)),
		env.WithLogger(logger),
	)
	return &Session{runner: harness.NewRunner(e), out: out}
}

// Env returns the session's environment.
func (s *Session) Env() *env.Environment {
	return s.runner.Env()
}

// Eval runs one line of input. It returns quit=true for :quit.
// Errors are returned for the caller to print; the session stays usable.
func (s *Session) Eval(line string) (quit bool, err error) {
	src := strings.TrimSpace(line)
	if src == "" {
		return false, nil
	}
	if strings.HasPrefix(src, ":") {
		return s.command(src)
	}

	step, err := ParseLine(src)
	if err != nil {
		return false, err
	}
	out, err := s.runner.Exec(step)
	if err != nil {
		return false, err
	}
	if step.Kind() == harness.StepRead {
		fmt.Fprintln(s.out, out)
	}
	return false, nil
}

func (s *Session) command(src string) (bool, error) {
	fields := strings.Fields(src)
	e := s.Env()

	arg := func() (string, error) {
		if len(fields) != 2 {
			return "", fmt.Errorf("%s takes one binding name", fields[0])
		}
		return fields[1], nil
	}

	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true, nil
	case ":help":
		fmt.Fprintln(s.out, replHelp)
	case ":names":
		for _, name := range e.Names() {
			v, err := e.Read(name)
			if err != nil {
				return false, err
			}
			fmt.Fprintf(s.out, "%s = %s\n", name, render.InspectNested(e.Store(), v))
		}
	case ":typeof":
		name, err := arg()
		if err != nil {
			return false, err
		}
		v, err := e.Read(name)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, value.TypeOf(v))
	case ":aliases":
		name, err := arg()
		if err != nil {
			return false, err
		}
		names, err := e.Aliases(name)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, strings.Join(names, ", "))
	case ":live":
		fmt.Fprintln(s.out, e.Store().Live())
	default:
		return false, fmt.Errorf("unknown command %s (type :help)", fields[0])
	}
	return false, nil
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive binding session",
		Long: `Start an interactive session over one environment.

Declare bindings, mutate them and watch every alias observe the change.
Type :help for the statement syntax and :quit to leave.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(rootOpts, cmd)
		},
	}

	return cmd
}

func runRepl(opts *RootOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	errw := cmd.ErrOrStderr()
	session := NewSession(w, newLogger(opts.Verbose, errw))

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(w, "bindlab repl. Type :help for syntax, :quit to exit.")
	for {
		line, err := ln.Prompt(replPrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(w)
			return nil
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read input", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)

		quit, err := session.Eval(line)
		if err != nil {
			fmt.Fprintf(errw, "error: %v\n", err)
			continue
		}
		if quit {
			return nil
		}
	}
}
