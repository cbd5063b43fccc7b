package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mwierzba/factgraph/internal/client"
	"github.com/mwierzba/factgraph/internal/models"
	"github.com/mwierzba/factgraph/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	submitTexts    []string
	submitFiles    []string
	submitLinks    []string
	submitJSON     string
	submitLanguage string
	submitProcess  bool
	submitToolLoop bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a batch of items for analysis",
	Long: `Submit text snippets, files and links as one analysis job.

Examples:
  factgraph submit --text "Atlantis raised defence spending by 12%."
  factgraph submit --file report.pdf --link https://news.example.com/article
  factgraph submit --text "..." --process --language pl
  factgraph submit --server http://analysis-host:8080 --text "..."`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringArrayVar(&submitTexts, "text", nil, "text item (repeatable)")
	submitCmd.Flags().StringArrayVar(&submitFiles, "file", nil, "file item, read and base64-encoded (repeatable)")
	submitCmd.Flags().StringArrayVar(&submitLinks, "link", nil, "link item (repeatable)")
	submitCmd.Flags().StringVar(&submitJSON, "json", "", "file with a JSON array of items ({type, content, wage})")
	submitCmd.Flags().StringVarP(&submitLanguage, "language", "l", "en", "analysis language (en or pl)")
	submitCmd.Flags().BoolVar(&submitProcess, "process", false, "run the full pipeline after submitting (local mode runs it inline)")
	submitCmd.Flags().BoolVar(&submitToolLoop, "tool-loop", false, "use iterative tool-calling reasoning")
	rootCmd.AddCommand(submitCmd)
}

func buildItemSpecs() ([]models.ItemSpec, error) {
	var specs []models.ItemSpec
	if submitJSON != "" {
		data, err := os.ReadFile(submitJSON)
		if err != nil {
			return nil, fmt.Errorf("read items file %s: %w", submitJSON, err)
		}
		if err := json.Unmarshal(data, &specs); err != nil {
			return nil, fmt.Errorf("parse items file %s: %w", submitJSON, err)
		}
	}
	for _, text := range submitTexts {
		specs = append(specs, models.ItemSpec{Type: "text", Content: text})
	}
	for _, path := range submitFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", path, err)
		}
		specs = append(specs, models.ItemSpec{Type: "file", Content: base64.StdEncoding.EncodeToString(data)})
	}
	for _, link := range submitLinks {
		specs = append(specs, models.ItemSpec{Type: "link", Content: link})
	}
	return specs, nil
}

func submitOptions() pipeline.Options {
	opts := pipeline.DefaultOptions(submitLanguage)
	opts.UseToolLoop = submitToolLoop
	return opts
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	specs, err := buildItemSpecs()
	if err != nil {
		return err
	}

	if serverURL != "" {
		opts := submitOptions()
		result, err := client.New(serverURL).Submit(ctx, specs, submitLanguage, submitProcess, &opts)
		if err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		fmt.Printf("Job: %s (%s)\n", result.JobUUID, result.Status)
		return nil
	}

	orchestrator, err := newOrchestrator()
	if err != nil {
		return err
	}

	jobUUID, err := orchestrator.Submit(ctx, specs)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Printf("Job: %s\n", jobUUID)

	if !submitProcess {
		fmt.Println("Submitted without processing. Start it with: factgraph run", jobUUID)
		return nil
	}

	fmt.Println("Processing...")
	if err := orchestrator.Run(ctx, jobUUID, submitOptions()); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	fmt.Println("Completed. View it with: factgraph status", jobUUID)
	return nil
}
