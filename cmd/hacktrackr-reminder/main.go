// hacktrackr-reminder sends hackathon deadline and quiz reminders.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title HackTrackr Reminder API
// @version 1.0.0
// @description Ops endpoints of the hackathon deadline and quiz reminder scheduler
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var rootCmd = &cobra.Command{
	Use:           "hacktrackr-reminder",
	Short:         "Hackathon deadline and quiz reminder scheduler",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
