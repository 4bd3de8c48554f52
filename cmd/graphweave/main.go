// Command graphweave runs orchestration patterns and serialized graph
// definitions from the command line, writing progress events to stdout in the
// wire format.
//
// Usage:
//
//	graphweave run --pattern sequential --input "some text"
//	graphweave run --request request.json
//	graphweave graph --file pipeline.yaml
//	graphweave serve --config config.yaml
//	graphweave patterns
//	graphweave version
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/graphweave/graphweave/events"
	"github.com/graphweave/graphweave/graph"
	"github.com/graphweave/graphweave/patterns"
	"github.com/graphweave/graphweave/step"
	"github.com/graphweave/graphweave/store"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runPattern(os.Args[2:])
	case "graph":
		err = runGraph(os.Args[2:])
	case "serve":
		err = serve(os.Args[2:])
	case "patterns":
		for _, name := range patterns.DefaultRegistry().Names() {
			fmt.Println(name)
		}
	case "version":
		fmt.Printf("graphweave %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `graphweave - AI workflow graph engine

Commands:
  run       execute an orchestration pattern
  graph     execute a serialized graph definition
  serve     run the HTTP/WebSocket front end
  patterns  list the built-in patterns
  version   print version information

Run 'graphweave <command> -h' for command flags.`)
}

func runPattern(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	pattern := fs.String("pattern", "", "pattern name (sequential, parallel, conditional, retry, complex)")
	input := fs.String("input", "", "input text")
	model := fs.String("model", "stub", "model selector passed to the invoker")
	requestPath := fs.String("request", "", "path to a JSON run request {patternName, model, input}")
	redisAddr := fs.String("redis", "", "redis address for the completion cache (optional)")
	delay := fs.Duration("delay", 0, "artificial step delay for the stub invoker")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := &patterns.Request{Pattern: *pattern, Model: *model, Input: *input}
	if *requestPath != "" {
		data, err := os.ReadFile(*requestPath)
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		if req, err = patterns.ParseRequest(data); err != nil {
			return err
		}
	}
	if req.Pattern == "" {
		return fmt.Errorf("--pattern or --request is required")
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	invoker := &step.StubInvoker{Delay: *delay}

	writer := events.NewWireWriter(os.Stdout)
	ch := events.NewChannel(logger).WithSink(writer.Sink(logger))
	defer ch.Close()

	rt := patterns.NewRuntime(invoker).
		WithEvents(ch).
		WithLogger(logger)

	if *redisAddr != "" {
		cfg := store.DefaultRedisConfig()
		cfg.Addr = *redisAddr
		rs, err := store.NewRedisStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rs.Close()
		rt = rt.WithStore(rs)
	}

	result, err := patterns.Run(ctx, rt, req)
	if err != nil {
		return err
	}

	logger.Info("run finished",
		zap.String("pattern", result.Pattern),
		zap.Duration("duration", result.Duration),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)
	return nil
}

func runGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	file := fs.String("file", "", "graph definition file (.json or .yaml)")
	delay := fs.Duration("delay", 0, "artificial step delay for the stub invoker")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read definition: %w", err)
	}

	var def *graph.GraphDefinition
	switch strings.ToLower(filepath.Ext(*file)) {
	case ".yaml", ".yml":
		def, err = graph.ParseDefinitionYAML(data)
	default:
		def, err = graph.ParseDefinitionJSON(data)
	}
	if err != nil {
		return err
	}

	// Transform and condition functions cannot round-trip through a
	// definition file; the CLI runs function-free graphs only.
	g, err := graph.FromDefinition(def, nil)
	if err != nil {
		return err
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	invoker := &step.StubInvoker{Delay: *delay}

	writer := events.NewWireWriter(os.Stdout)
	ch := events.NewChannel(logger).WithSink(writer.Sink(logger))
	defer ch.Close()

	ec := graph.NewExecutionContext(invoker).
		WithEvents(ch).
		WithLogger(logger)

	start := time.Now()
	results, err := graph.NewExecutor(logger).Execute(ctx, g, ec)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	logger.Info("graph finished",
		zap.Int("nodes", len(results)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
