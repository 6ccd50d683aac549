package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stoik/triage/internal/models"
	"github.com/stoik/triage/services/triage-service/internal/importer"
	"github.com/stoik/triage/services/triage-service/internal/search"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import emails from a file",
	Long:  "Imports a .json or .eml file. Without a file the bundled demo emails are imported.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			emails   []models.NewEmail
			filename = importer.SampleFilename
		)

		if len(args) == 0 {
			emails = importer.SampleEmails()
		} else {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			filename = filepath.Base(args[0])
			emails, err = importer.Parse(filename, data)
			if err != nil {
				return fmt.Errorf("%s: %w", importer.UserMessage(err), err)
			}
		}

		ctx := context.Background()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		ids, err := rt.store.ImportEmails(ctx, filename, emails)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Imported %d emails from %s\n", len(ids), filename)
		return nil
	},
}

var classifyAllCmd = &cobra.Command{
	Use:   "classify-all",
	Short: "Classify stored emails",
	Long:  "Classifies unclassified emails, or every email with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		all, _ := cmd.Flags().GetBool("all")
		result, err := rt.service.ClassifyAll(ctx, !all)
		if err != nil {
			return err
		}

		fmt.Printf("Total: %d, classified: %d, failed: %d\n", result.Total, result.Classified, result.Failed)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Keyword search over stored emails",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		topK, _ := cmd.Flags().GetInt("top-k")
		if topK <= 0 {
			topK = rt.cfg.Search.DefaultTopK
		}

		query := strings.Join(args, " ")
		results, err := rt.service.Search(ctx, query, topK)
		if err != nil {
			return err
		}

		fmt.Println(search.FormatAnswer(query, results))
		return nil
	},
}

func init() {
	classifyAllCmd.Flags().Bool("all", false, "Reclassify emails that already have a classification")
	searchCmd.Flags().Int("top-k", 0, "Maximum number of results (default search.default_top_k)")

	rootCmd.AddCommand(importCmd, classifyAllCmd, searchCmd)
}
