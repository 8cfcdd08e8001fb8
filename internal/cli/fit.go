package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/happyhackingspace/webpager"
	"github.com/happyhackingspace/webpager/classifier"
	"github.com/spf13/cobra"
)

// weightsFile is the JSON shape of externally trained logistic weights.
type weightsFile struct {
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

func (c *CLI) newFitCommand() *cobra.Command {
	var dataFolder string
	var domains string
	var limit int
	var weightsPath string
	var modelOut string

	cmd := &cobra.Command{
		Use:   "fit <pipelinefile>",
		Short: "Fit feature vocabularies on an annotated page corpus",
		Long: `Fit extracts anchors and weak labels from every annotated page in the
corpus, fits the feature vocabularies on them, and writes the fitted
pipeline to <pipelinefile>. Weights trained elsewhere on the resulting
design matrix can be assembled into a servable model with --weights.`,
		Args: cobra.ExactArgs(1),
		Example: `  webpager fit pipeline.json --data-folder data/pages
  webpager fit pipeline.json --data-folder data/pages --domains blog.example.com
  webpager fit pipeline.json --weights weights.json --model-out model.json
  webpager fit pipeline.json -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipelinePath := args[0]
			config := &webpager.FitConfig{
				Limit:   limit,
				Verbose: c.verbose,
			}
			if domains != "" {
				config.Domains = strings.Split(domains, ",")
			}

			slog.Info("Fitting pipeline", "data-folder", dataFolder, "output", pipelinePath)
			start := time.Now()
			result, err := webpager.Fit(dataFolder, config)
			if err != nil {
				return err
			}
			slog.Debug("Fitting completed", "duration", time.Since(start))

			if err := classifier.SavePipeline(result.Union, pipelinePath); err != nil {
				return err
			}
			slog.Info("Pipeline saved", "path", pipelinePath)

			if weightsPath != "" {
				if err := assembleModel(result, weightsPath, modelOut); err != nil {
					return err
				}
				slog.Info("Model saved", "path", modelOut)
			}

			return printJSON(result.Stats)
		},
	}

	cmd.Flags().StringVar(&dataFolder, "data-folder", "data/pages", "Path to annotated page corpus")
	cmd.Flags().StringVar(&domains, "domains", "", "Comma-separated domains to fit on (default: all)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum corpus pages to use (0 = unlimited)")
	cmd.Flags().StringVar(&weightsPath, "weights", "", "Path to trained weights JSON to assemble into a model")
	cmd.Flags().StringVar(&modelOut, "model-out", "model.json", "Model output path (with --weights)")
	return cmd
}

func assembleModel(result *webpager.FitResult, weightsPath, modelOut string) error {
	data, err := os.ReadFile(weightsPath)
	if err != nil {
		return fmt.Errorf("read weights: %w", err)
	}
	var weights weightsFile
	if err := json.Unmarshal(data, &weights); err != nil {
		return fmt.Errorf("unmarshal weights: %w", err)
	}

	model, err := classifier.NewNextPageModel(result.Union, weights.Classes, weights.Coef, weights.Intercept)
	if err != nil {
		return err
	}
	return model.Save(modelOut)
}
