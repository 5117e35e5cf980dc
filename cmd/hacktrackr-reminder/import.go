package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/hacktrackr-reminder/internal/service"
)

var importEmail string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a HackTrackr frontend export into the store",
	Long: `Load hackathons and quizzes exported from the HackTrackr frontend.

The file is the JSON object {"hackathons": [...], "quizzes": [...]}.
Datetimes without a zone, as saved by the browser form, are read in
REMINDER_TIMEZONE. Entities are upserted by id, so re-importing an edited export is safe and
keeps the notification history of every deadline.

Examples:
  hacktrackr-reminder import export.json --email me@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importEmail, "email", "", "Recipient for entities that have none")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	importer := service.NewImportService(a.quizzes, a.events, nil, a.evaluator.Location(), a.logger)
	result, err := importer.Import(cmd.Context(), f, importEmail)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
