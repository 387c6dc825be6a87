package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/valuegraph/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes.
const (
	ExitFailure     = 1
	ExitUsage       = 2
	ExitUnsatisfied = 3
)

// listFlag collects a flag given several times or as a comma separated list.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*l = append(*l, item)
		}
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("valuegraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
valuegraph - Builds dependency graphs of analytic values from a function catalogue.

Usage:
  valuegraph [options] [CONFIG_PATH...]

Arguments:
  CONFIG_PATH
    Path to a single .hcl file or a directory containing .hcl files. The
    catalogue, target universe and views may be split across files.

Options:
`)
		flagSet.PrintDefaults()
	}

	var configPaths, calcConfigs listFlag
	flagSet.Var(&configPaths, "config", "Path to a configuration file or directory. May be repeated.")
	flagSet.Var(&configPaths, "c", "Path to a configuration file or directory (shorthand).")
	viewFlag := flagSet.String("view", "", "Name of the view to build. Empty builds every view.")
	flagSet.Var(&calcConfigs, "calc-config", "Calculation configurations to build, comma separated. Empty builds all of the view.")
	defaultsFlag := flagSet.String("default-properties", "", "Default property bindings applied before each calc config's own, e.g. 'Curve=Discount,PresentValue.Currency=USD'.")
	strictFlag := flagSet.Bool("strict", false, "Exit with a non-zero code when any requirement is unsatisfied.")
	outputFlag := flagSet.String("output", app.OutputText, "Result format. Options: 'text', 'json' or 'dot'.")
	publishURLFlag := flagSet.String("publish-url", "", "socket.io endpoint receiving a 'graph_built' event per build, e.g. 'http://localhost:3000/socket.io/'.")
	publishNamespaceFlag := flagSet.String("publish-namespace", "/", "socket.io namespace used with -publish-url.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent resolution workers. 0 uses one per CPU.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	paths := append([]string(configPaths), flagSet.Args()...)
	slog.Debug("Configuration paths determined.", "paths", paths)

	if len(paths) == 0 {
		slog.Debug("No configuration path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPaths:       paths,
		View:              *viewFlag,
		CalcConfigs:       calcConfigs,
		DefaultProperties: *defaultsFlag,
		Strict:            *strictFlag,
		Output:            strings.ToLower(*outputFlag),
		PublishURL:        *publishURLFlag,
		PublishNamespace:  *publishNamespaceFlag,
		HealthcheckPort:   *healthPortFlag,
		LogFormat:         logFormat,
		LogLevel:          logLevel,
		WorkerCount:       *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
