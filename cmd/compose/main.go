// Package main is the entry point for the compose command, which loads a
// composition file and invokes methods on a proxy instance.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dshills/composite/internal/composition"
	"github.com/dshills/composite/internal/dispatcher"
	"github.com/dshills/composite/internal/logger"
	"github.com/dshills/composite/internal/proxy"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds the parsed command line.
type options struct {
	File     string
	Type     string
	Watch    bool
	Metrics  bool
	LogLevel string
	Call     []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, code, done := parseFlags(os.Args[1:], os.Stdout, os.Stderr)
	if done {
		return code
	}

	log, err := logger.New("development", opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := composition.Load(opts.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	buildOpts := []composition.Option{composition.WithLogger(log)}
	if opts.Type != "" {
		buildOpts = append(buildOpts, composition.WithTypeName(opts.Type))
	}
	if opts.Metrics {
		buildOpts = append(buildOpts, composition.WithDispatcherConfig(dispatcher.DefaultConfig().WithMetrics()))
	}

	assembly, err := composition.Build(ctx, f, buildOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build composition: %v\n", err)
		return 1
	}
	defer assembly.Close()

	if opts.Watch {
		go func() {
			if err := composition.Watch(ctx, assembly); err != nil {
				log.Error("Watch stopped.", "error", err)
			}
		}()
	}

	inst := assembly.NewInstance()

	if len(opts.Call) > 0 {
		if err := execute(inst, opts.Call, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		printMetrics(assembly, os.Stderr)
		return 0
	}

	if err := repl(ctx, inst, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	printMetrics(assembly, os.Stderr)
	return 0
}

// parseFlags parses args. When done is true the caller exits with code.
func parseFlags(args []string, stdout, stderr io.Writer) (opts options, code int, done bool) {
	var showVersion bool
	var showHelp bool

	fs := flag.NewFlagSet("compose", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.File, "f", "", "Path to composition file (required)")
	fs.StringVar(&opts.Type, "type", "", "Proxy type or interface to instantiate (overrides the file)")
	fs.BoolVar(&opts.Watch, "watch", false, "Reload bindings when the composition or its scripts change")
	fs.BoolVar(&opts.Metrics, "metrics", false, "Print invocation metrics on exit")
	fs.StringVar(&opts.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	fs.BoolVar(&showHelp, "help", false, "Show help message")
	fs.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "compose - invoke methods on a composed proxy\n\n")
		fmt.Fprintf(stderr, "Usage: compose -f <file> [options] [Method args...]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  compose -f c.toml Read 10      Invoke Read(10) once\n")
		fmt.Fprintf(stderr, "  compose -f c.toml              Read \"Method args...\" lines from stdin\n")
		fmt.Fprintf(stderr, "  compose -f c.toml Equals self  Compare the proxy with itself\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, 0, true
		}
		return opts, 2, true
	}

	if showHelp {
		fs.Usage()
		return opts, 0, true
	}

	if showVersion {
		fmt.Fprintf(stdout, "compose %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return opts, 0, true
	}

	// Validate log level
	switch opts.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		fmt.Fprintf(stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		return opts, 1, true
	}

	if opts.File == "" {
		fmt.Fprintf(stderr, "Error: -f is required\n")
		fs.Usage()
		return opts, 2, true
	}

	opts.Call = fs.Args()
	return opts, 0, false
}

// repl executes one call per input line until EOF or ctx is done. A failing
// call is reported and does not stop the loop.
func repl(ctx context.Context, inst *proxy.Instance, in io.Reader, out, errOut io.Writer) error {
	lines, scanErr := scanLines(ctx, in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			fields := strings.Fields(line)
			if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
				continue
			}
			if err := execute(inst, fields, out); err != nil {
				fmt.Fprintf(errOut, "Error: %v\n", err)
			}
		}
	}
}

// scanLines reads in on its own goroutine so a blocked read never delays
// cancellation. The error channel receives exactly once, after lines closes.
func scanLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

// execute invokes call[0] with the remaining words as arguments and prints
// the result.
func execute(inst *proxy.Instance, call []string, out io.Writer) error {
	args := make([]any, len(call)-1)
	for i, word := range call[1:] {
		args[i] = parseArg(word, inst)
	}

	result, err := inst.Call(call[0], args...)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, formatResult(result))
	return nil
}

// parseArg reads a word as int, float, bool or string, in that order. The
// word "self" is the proxy instance itself.
func parseArg(word string, self *proxy.Instance) any {
	if word == "self" {
		return self
	}
	if i, err := strconv.Atoi(word); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(word); err == nil {
		return b
	}
	return word
}

func formatResult(v any) string {
	switch r := v.(type) {
	case nil:
		return "nil"
	case []any:
		parts := make([]string, len(r))
		for i, e := range r {
			parts[i] = formatResult(e)
		}
		return strings.Join(parts, "\t")
	case string:
		return r
	}
	return fmt.Sprint(v)
}

func printMetrics(a *composition.Assembly, w io.Writer) {
	var m *dispatcher.Metrics
	a.Dispatcher.View(func(d *dispatcher.Dispatcher) {
		m = d.Metrics()
	})
	if m == nil {
		return
	}
	for _, mm := range m.TopMethods(10) {
		fmt.Fprintf(w, "%-24s calls=%d errors=%d unresolved=%d avg=%s\n",
			mm.Name, mm.InvokeCount, mm.ErrorCount, mm.UnresolvedCount, mm.AverageDuration())
	}
}
