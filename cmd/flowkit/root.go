package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pipewright/flowkit/internal/compiler"
	"pipewright/flowkit/internal/parser"
	"pipewright/flowkit/internal/resolver"
	"pipewright/flowkit/internal/task"
	"pipewright/flowkit/internal/task/builtin"
	"pipewright/flowkit/pkg/engine"
	"pipewright/flowkit/pkg/logger"
)

// Version is the current version.
const Version = "0.1.0"

var (
	projectFile string
	logLevel    string
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:     "flowkit",
	Short:   "Declarative flow orchestration engine",
	Long:    "flowkit compiles declarative flow definitions into ordered step plans,\nruns them with conditional skipping and retries, and resolves project\ndependencies into install plans.",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			logger.SetLevelFromString("error")
		} else {
			logger.SetLevelFromString(logLevel)
		}
	},
}

// Execute runs the root command. Exit codes: 0 for a completed run,
// 1 for an aborted run, 2 for compile, parse, or resolution failures.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// runAbortedError marks a run that stopped at a failed step.
type runAbortedError struct {
	flowName string
	stepPath string
}

func (e *runAbortedError) Error() string {
	return fmt.Sprintf("flow '%s' aborted at step '%s'", e.flowName, e.stepPath)
}

func exitCode(err error) int {
	var (
		aborted      *runAbortedError
		compileErr   *compiler.CompileError
		parseErr     *parser.ParseError
		validErr     *parser.ValidationError
		unresolvable *resolver.UnresolvableDependencyError
		conflict     *resolver.VersionConflictError
		cyclic       *resolver.CyclicDependencyError
		fetchErr     *resolver.FetchError
	)
	switch {
	case errors.As(err, &aborted):
		return 1
	case errors.As(err, &compileErr),
		errors.As(err, &parseErr),
		errors.As(err, &validErr),
		errors.As(err, &unresolvable),
		errors.As(err, &conflict),
		errors.As(err, &cyclic),
		errors.As(err, &fetchErr):
		return 2
	default:
		return 1
	}
}

// loadEngine parses the project file and binds it to a registry with
// the built-in tasks.
func loadEngine() (*engine.Engine, error) {
	project, err := parser.NewProjectParser().ParseFile(projectFile)
	if err != nil {
		return nil, err
	}
	registry := task.NewRegistry()
	builtin.RegisterAll(registry)
	return engine.New(project, registry), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFile, "project", "p", "flowkit.yml", "project file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
