// Command bpets evaluates batches of 4D tensor pruning jobs and writes the
// results as a Prometheus text report.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obinexus/bpets/internal/config"
	"github.com/obinexus/bpets/internal/report"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// logLevel is shared by the default logger so a config reload can change it.
var logLevel = new(slog.LevelVar)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bpets",
		Short: "BPETS - balanced pruning of 4D tensors",
		Long: `bpets prunes (time, space, feature, channel) tensors by feature weight,
prunes feature graphs by cluster, and scores what remains with the
Freedom-of-Dexterity metric. Results are written in the Prometheus text
format.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bpets v%s (%s)\n", version, commit)
		},
	})

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every job once and write the report",
		RunE:  runRun,
	}
	addBatchFlags(runCmd)
	rootCmd.AddCommand(runCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-evaluate whenever the config or jobs file changes",
		RunE:  runWatch,
	}
	addBatchFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "inspect [report]",
		Short: "Print a per-job summary of a report",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	})

	return rootCmd
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Config file (defaults apply when empty)")
	cmd.Flags().String("jobs", "", "Jobs file")
	cmd.Flags().String("out", "", "Report path, \"-\" for stdout (overrides report.output)")
	_ = cmd.MarkFlagRequired("jobs")
}

func runRun(cmd *cobra.Command, args []string) error {
	b, err := newBatch(cmd)
	if err != nil {
		return err
	}
	return b.run(cmd.Context())
}

func runWatch(cmd *cobra.Command, args []string) error {
	b, err := newBatch(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := b.run(ctx); err != nil {
		slog.Error("batch failed", "err", err)
	}

	paths := []string{b.jobsPath}
	if b.configPath != "" {
		paths = append(paths, b.configPath)
	}
	if err := config.Watch(ctx, b.onChange(ctx), paths...); err != nil {
		return err
	}
	slog.Info("bpets watch shutting down")
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	mfs, err := report.ReadFile(args[0])
	if err != nil {
		return err
	}
	return report.PrintSummaries(cmd.OutOrStdout(), report.Summaries(mfs))
}

// flagString reads a string flag registered by addBatchFlags.
func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
