package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pipewright/flowkit/internal/resolver"
)

var (
	resolveSource      string
	resolveLockfile    string
	resolveUpdate      bool
	resolveConcurrency int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve project dependencies into an install plan",
	Args:  cobra.NoArgs,
	RunE:  resolveDependencies,
}

func resolveDependencies(cmd *cobra.Command, args []string) error {
	e, err := loadEngine()
	if err != nil {
		return err
	}
	if len(e.Project().Dependencies) == 0 {
		fmt.Println("no dependencies declared")
		return nil
	}

	opts := []resolver.Option{
		resolver.WithFetchConcurrency(resolveConcurrency),
	}
	if resolveLockfile != "" && !resolveUpdate {
		if _, err := os.Stat(resolveLockfile); err == nil {
			lockfile, err := resolver.LoadLockfile(resolveLockfile)
			if err != nil {
				return err
			}
			opts = append(opts, resolver.WithLockfile(lockfile))
		}
	}

	plan, err := e.ResolveDependencies(context.Background(), resolver.NewDirectorySource(resolveSource), opts...)
	if err != nil {
		return err
	}

	for _, resolved := range plan {
		fmt.Printf("%s %s\n", resolved.Identity.Key(), resolved.Ref())
	}

	if resolveLockfile != "" {
		lockfile := resolver.LockfileFromPlan(plan)
		if err := lockfile.Save(resolveLockfile); err != nil {
			return err
		}
		if !quiet {
			fmt.Printf("lockfile written: %s\n", resolveLockfile)
		}
	}
	return nil
}

func init() {
	resolveCmd.Flags().StringVar(&resolveSource, "source", "deps", "directory holding dependency manifests")
	resolveCmd.Flags().StringVar(&resolveLockfile, "lockfile", "", "lockfile path to read pins from and write the plan to")
	resolveCmd.Flags().BoolVar(&resolveUpdate, "update", false, "ignore existing lockfile pins")
	resolveCmd.Flags().IntVar(&resolveConcurrency, "concurrency", resolver.DefaultFetchConcurrency, "concurrent manifest fetches")

	rootCmd.AddCommand(resolveCmd)
}
