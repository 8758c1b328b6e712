// unibill-sim runs a billing scenario against in-memory providers and logs
// every event the library emits. The scenario is a YAML file listing the
// providers (catalog, availability, latency, optional sku cache) and a script
// of requests and provider toggles.
//
//	unibill-sim -scenario testdata/basic.yaml
//
// UNIBILL_SCENARIO, UNIBILL_LOG_LEVEL and UNIBILL_HOOKS (off, slog, slog-json)
// may come from the environment or a .env file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	scenarioPath := flag.String("scenario", "", "path to scenario file (default $UNIBILL_SCENARIO)")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	path := *scenarioPath
	if path == "" {
		path = os.Getenv("UNIBILL_SCENARIO")
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "error: no scenario (use -scenario or UNIBILL_SCENARIO)")
		os.Exit(2)
	}

	if err := run(path, os.Getenv("UNIBILL_LOG_LEVEL"), os.Getenv("UNIBILL_HOOKS")); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(level); err != nil {
			return nil, err
		}
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func run(path, level, hooksMode string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sc, err := LoadScenario(path)
	if err != nil {
		return err
	}
	log, err := newLogger(level)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	hooks, err := newHooks(hooksMode, os.Stderr)
	if err != nil {
		return err
	}
	rn := newRunner(sc, log)
	if hooks != nil {
		defer hooks.Close()
		rn.hooks = hooks
	}

	sum, err := rn.Run(ctx)
	printSummary(sum)
	return err
}

func printSummary(s Summary) {
	fmt.Printf("active provider: %q\n", s.Active)
	for i, st := range s.Setups {
		fmt.Printf("setup #%d: %s\n", i+1, st)
	}
	keys := make([]string, 0, len(s.Responses))
	for k := range s.Responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-40s %d\n", k, s.Responses[k])
	}
}
