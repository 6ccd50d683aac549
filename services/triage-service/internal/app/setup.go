package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stoik/triage/services/triage-service/internal/db"
	"github.com/stoik/triage/services/triage-service/internal/importer"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Setup database and optionally load demo emails",
	Long:  "Creates database tables and, with --samples, imports the bundled demo emails for development/testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		// Run migrations
		fmt.Println("Running migrations...")
		if err := db.Migrate(ctx, rt.pool); err != nil {
			return err
		}

		withSamples, _ := cmd.Flags().GetBool("samples")
		if !withSamples {
			fmt.Println("✓ Database setup complete.")
			return nil
		}

		fmt.Println("Importing demo emails...")
		ids, err := rt.store.ImportEmails(ctx, importer.SampleFilename, importer.SampleEmails())
		if err != nil {
			return fmt.Errorf("failed to import demo emails: %w", err)
		}

		fmt.Printf("✓ Database setup complete. Imported %d demo emails.\n", len(ids))
		return nil
	},
}

func init() {
	setupCmd.Flags().Bool("samples", false, "Import the bundled demo emails")
	rootCmd.AddCommand(setupCmd)
}
