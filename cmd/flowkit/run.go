package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pipewright/flowkit/internal/reporter"
	"pipewright/flowkit/internal/runner"
	"pipewright/flowkit/pkg/engine"
)

var (
	runOptions    []string
	runConfig     []string
	runResumeFrom string
	runJSONOutput string
	runVerbose    bool
)

var runCmd = &cobra.Command{
	Use:   "run <flow>",
	Short: "Compile and run a flow",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlow,
}

func runFlow(cmd *cobra.Command, args []string) error {
	flowName := args[0]

	e, err := loadEngine()
	if err != nil {
		return err
	}

	overrides, err := parseStepOptions(runOptions)
	if err != nil {
		return err
	}
	config, err := parseKeyValues(runConfig)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\naborting run...")
		cancel()
	}()

	var callback runner.ExecutionCallback
	if !quiet {
		progress := reporter.NewProgressReporter(os.Stdout)
		progress.SetVerbose(runVerbose)
		callback = progress
	}

	result, err := e.RunFlow(ctx, flowName, engine.RunFlowOptions{
		Config:     config,
		Overrides:  overrides,
		ResumeFrom: runResumeFrom,
		Callback:   callback,
	})
	if err != nil {
		return err
	}

	if runJSONOutput != "" {
		if err := writeRunJSON(runJSONOutput, result); err != nil {
			return fmt.Errorf("writing JSON output: %w", err)
		}
	}

	if !result.Completed() {
		return &runAbortedError{flowName: flowName, stepPath: result.FailedStepPath}
	}
	return nil
}

// parseStepOptions turns "step__option=value" arguments into the
// runtime override layer. The value parses as a YAML scalar, so
// numbers and booleans keep their types.
func parseStepOptions(pairs []string) (map[string]map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]map[string]any)
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid option '%s': expected step__option=value", pair)
		}
		step, option, ok := strings.Cut(key, "__")
		if !ok || step == "" || option == "" {
			return nil, fmt.Errorf("invalid option '%s': expected step__option=value", pair)
		}
		if overrides[step] == nil {
			overrides[step] = make(map[string]any)
		}
		overrides[step][option] = parseScalar(raw)
	}
	return overrides, nil
}

// parseKeyValues turns "key=value" arguments into a config overlay.
func parseKeyValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	config := make(map[string]any)
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid config value '%s': expected key=value", pair)
		}
		config[key] = parseScalar(raw)
	}
	return config, nil
}

func parseScalar(raw string) any {
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
		return raw
	}
	return value
}

func writeRunJSON(path string, result any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func init() {
	runCmd.Flags().StringArrayVarP(&runOptions, "option", "o", nil, "step option override, step__option=value (repeatable)")
	runCmd.Flags().StringArrayVarP(&runConfig, "config", "c", nil, "config overlay, key=value (repeatable)")
	runCmd.Flags().StringVar(&runResumeFrom, "resume-from", "", "step path to resume at; earlier steps are skipped")
	runCmd.Flags().StringVar(&runJSONOutput, "out-json", "", "write the run result as JSON to a file")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "show per-step durations and attempts")

	rootCmd.AddCommand(runCmd)
}
