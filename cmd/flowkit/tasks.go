package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the registered tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tIDEMPOTENT\tOPTIONS\tDESCRIPTION")
		for _, t := range e.Tasks() {
			options := make([]string, 0, len(t.OptionSchema()))
			for name, spec := range t.OptionSchema() {
				if spec.Required {
					name += "*"
				}
				options = append(options, name)
			}
			sort.Strings(options)
			fmt.Fprintf(w, "%s\t%t\t%v\t%s\n", t.Name(), t.Idempotent(), options, t.Description())
		}
		return w.Flush()
	},
}

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "List the project's flows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}
		for _, name := range e.Flows() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <flow>",
	Short: "Show the compiled step plan of a flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}

		steps, err := e.CompileFlow(args[0], nil)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STEP\tPATH\tTASK\tWHEN")
		for _, step := range steps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", step.StepNum, step.Path, step.TaskName, step.When)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(flowsCmd)
	rootCmd.AddCommand(planCmd)
}
