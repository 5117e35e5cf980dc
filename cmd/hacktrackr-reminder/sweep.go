package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run exactly one reminder sweep and exit",
	Long: `Run a single reminder sweep and print its report as JSON.

Suitable for driving the scheduler from cron or a Kubernetes CronJob
instead of running the long-lived serve command.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.reminders.Sweep(cmd.Context())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if report.Quizzes.StoreError != "" || report.Deadlines.StoreError != "" {
		return appErrors.ErrStoreUnavailable
	}
	return nil
}
