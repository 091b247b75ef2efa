// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Command paloo_sort sorts, generates and checks large line oriented text files.
package main

import (
	"context"
	"errors"
	"fmt"
	stdio "io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/daniarleagk/paloo_sort/generator"
	"github.com/daniarleagk/paloo_sort/operators"
	"github.com/daniarleagk/paloo_sort/record"
	"github.com/daniarleagk/paloo_sort/verify"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `usage: paloo_sort <command> [flags] <args>

commands:
  sort      [flags] <input> <output>   sort the lines of input into output
  generate  [flags] <output>           write a synthetic "<id>. <word>" file
  check     [flags] <input> <output>   verify output is the sorted input

run "paloo_sort <command> --help" for the flags of a command
`

// usageError marks failures caused by the command line rather than the work.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr stdio.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	var err error
	switch args[0] {
	case "sort":
		err = runSort(ctx, args[1:], stdout, stderr)
	case "generate":
		err = runGenerate(ctx, args[1:], stdout, stderr)
	case "check":
		err = runCheck(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		err = usagef("unknown command %q", args[0])
	}
	var uerr usageError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pflag.ErrHelp):
		return exitOK
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "paloo_sort: %v\n\n%s", err, usage)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "paloo_sort: %v\n", err)
		return exitError
	}
}

func newFlagSet(name string, stderr stdio.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SortFlags = false
	return flags
}

func parseFlags(flags *pflag.FlagSet, args []string, positional ...string) ([]string, error) {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, usageError{err}
	}
	if flags.NArg() != len(positional) {
		return nil, usagef("%s expects %s", flags.Name(), strings.Join(positional, " "))
	}
	return flags.Args(), nil
}

func runSort(ctx context.Context, args []string, stdout, stderr stdio.Writer) error {
	flags := newFlagSet("sort", stderr)
	comparatorName := flags.StringP("comparator", "c", "lex", "sort key: lex (whole line) or idtext (\"<id>. <text>\")")
	strict := flags.Bool("strict", false, "fail on the first malformed line instead of skipping it")
	threshold := flags.String("threshold", "", "largest input sorted in memory, e.g. 512MiB (default 2.5GiB)")
	chunkSize := flags.String("chunk-size", "", "target chunk size, derived from the input size when empty")
	minChunkSize := flags.String("min-chunk-size", "", "minimum chunk size (default 1MiB)")
	maxChunkSize := flags.String("max-chunk-size", "", "maximum derived chunk size (default 256MiB)")
	workers := flags.IntP("workers", "w", 0, "chunks sorted concurrently (default GOMAXPROCS)")
	tempDir := flags.String("temp-dir", "", "directory for temporary chunk files (default system temp)")
	logLevel := flags.String("log-level", "info", "debug, info, warn or error")
	positional, err := parseFlags(flags, args, "<input>", "<output>")
	if err != nil {
		return err
	}
	comparator, err := record.ByName(*comparatorName)
	if err != nil {
		return usageError{err}
	}
	opts := operators.Options{
		Comparator:  comparator,
		Concurrency: *workers,
		TempDir:     *tempDir,
	}
	if *strict {
		opts.Policy = record.FailOnMalformed
	}
	for _, size := range []struct {
		flag  string
		value string
		dst   *int64
	}{
		{"threshold", *threshold, &opts.InMemoryThreshold},
		{"chunk-size", *chunkSize, &opts.TargetChunkSize},
		{"min-chunk-size", *minChunkSize, &opts.MinChunkSize},
		{"max-chunk-size", *maxChunkSize, &opts.MaxChunkSize},
	} {
		if size.value == "" {
			continue
		}
		if *size.dst, err = parseSize(size.value); err != nil {
			return usagef("--%s: %v", size.flag, err)
		}
	}
	logger, err := newLogger(*logLevel, stderr)
	if err != nil {
		return usageError{err}
	}
	defer logger.Sync()
	opts.Logger = logger

	sorter, err := operators.NewSorter(opts)
	if err != nil {
		return err
	}
	report, err := sorter.SortFile(ctx, positional[0], positional[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "sorted %d lines (%d skipped) %s, %d chunks, in %s\n",
		report.Lines, report.Skipped, report.Mode, report.Chunks, report.Duration.Round(time.Millisecond))
	return nil
}

func runGenerate(ctx context.Context, args []string, stdout, stderr stdio.Writer) error {
	flags := newFlagSet("generate", stderr)
	size := flags.StringP("size", "s", "1MiB", "target file size, e.g. 1GiB")
	repeat := flags.IntP("repeat", "r", 1, "how many times each generated line is repeated")
	seed := flags.Int64("seed", 0, "random seed, 0 for a time based one")
	words := flags.StringSlice("words", nil, "words to pick from (default Apple,Banana,Cherry,Flower,Something)")
	positional, err := parseFlags(flags, args, "<output>")
	if err != nil {
		return err
	}
	bytes, err := parseSize(*size)
	if err != nil {
		return usagef("--size: %v", err)
	}
	start := time.Now()
	stats, err := generator.GenerateFile(ctx, afero.NewOsFs(), positional[0], generator.Options{
		Size:   bytes,
		Repeat: *repeat,
		Words:  *words,
		Seed:   *seed,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "generated %d lines, %d bytes, in %s\n", stats.Lines, stats.Bytes, time.Since(start).Round(time.Millisecond))
	return nil
}

func runCheck(ctx context.Context, args []string, stdout, stderr stdio.Writer) error {
	flags := newFlagSet("check", stderr)
	comparatorName := flags.StringP("comparator", "c", "lex", "sort key the output was sorted by: lex or idtext")
	positional, err := parseFlags(flags, args, "<input>", "<output>")
	if err != nil {
		return err
	}
	comparator, err := record.ByName(*comparatorName)
	if err != nil {
		return usageError{err}
	}
	summary, err := verify.Check(ctx, afero.NewOsFs(), positional[0], positional[1], comparator)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "ok: %d lines sorted by %s\n", summary.Lines, comparator.Name())
	return nil
}

func newLogger(level string, stderr stdio.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(stderr), lvl)
	return zap.New(core), nil
}

// parseSize reads a byte count with an optional K, M, G or T suffix (powers of 1024).
// "KB", "KiB" and "K" are the same.
func parseSize(s string) (int64, error) {
	number := strings.ToUpper(strings.TrimSpace(s))
	number = strings.TrimSuffix(number, "B")
	number = strings.TrimSuffix(number, "I")
	multiplier := int64(1)
	if n := len(number); n > 0 {
		switch number[n-1] {
		case 'K':
			multiplier = 1 << 10
		case 'M':
			multiplier = 1 << 20
		case 'G':
			multiplier = 1 << 30
		case 'T':
			multiplier = 1 << 40
		}
		if multiplier > 1 {
			number = strings.TrimSpace(number[:n-1])
		}
	}
	if n, err := strconv.ParseInt(number, 10, 64); err == nil {
		if n < 0 || n > math.MaxInt64/multiplier {
			return 0, fmt.Errorf("size %q out of range", s)
		}
		return n * multiplier, nil
	}
	f, err := strconv.ParseFloat(number, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f*float64(multiplier) >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return int64(f * float64(multiplier)), nil
}
