package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/seo-cli/internal/model"
	"github.com/sells-group/seo-cli/internal/pipeline"
	"github.com/sells-group/seo-cli/internal/progress"
	"github.com/sells-group/seo-cli/internal/taskcfg"
	"github.com/sells-group/seo-cli/pkg/textgen"
)

var (
	runQuery       string
	runURL         string
	runTopic       string
	runKeyword     string
	runKeywords    []string
	runTable       string
	runDomain      string
	runLanguage    string
	runMinRisk     float64
	runOutFile     string
	runDisavowFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis pipeline for a single request",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runQuery == "" {
			return eris.New("run: --query is required")
		}

		tasks, err := taskcfg.Load(cfg.Tasks.Dir)
		if err != nil {
			return eris.Wrap(err, "run: load task definitions")
		}

		var client textgen.Client
		if cfg.AI.Key != "" {
			client = textgen.NewClient(cfg.AI.Key, textgen.WithBaseURL(cfg.AI.BaseURL))
		}
		completer := textgen.NewCompleter(client, textgen.CompleterConfig{
			Model:          cfg.AI.Model,
			Temperature:    cfg.AI.Temperature,
			MaxTokens:      cfg.AI.MaxTokens,
			ModelMaxTokens: cfg.AI.ModelMaxTokens,
			Mock:           cfg.AI.Mock,
		})

		runner := pipeline.NewRunner(tasks, completer, progress.NewLogSink(zap.L()), cfg.Pipeline)

		req := &model.WorkRequest{
			Query:        runQuery,
			URL:          runURL,
			Topic:        runTopic,
			Keyword:      runKeyword,
			Keywords:     runKeywords,
			TablePath:    runTable,
			Domain:       runDomain,
			Language:     runLanguage,
			MinRiskScore: runMinRisk,
		}

		result, err := runner.Process(ctx, req)
		if err != nil {
			return eris.Wrap(err, "run: pipeline")
		}

		if runDisavowFile != "" {
			if err := writeDisavow(result, runDisavowFile); err != nil {
				return err
			}
		}

		return writeResult(result, runOutFile)
	},
}

func writeResult(result *model.PipelineResult, path string) error {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "run: encode result")
	}
	if path == "" {
		fmt.Println(string(raw))
		return nil
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrap(err, "run: write result file")
	}
	zap.L().Info("result written", zap.String("path", path))
	return nil
}

func writeDisavow(result *model.PipelineResult, path string) error {
	if result.LinkAnalysis == nil {
		zap.L().Warn("no link analysis in result, skipping disavow file")
		return nil
	}
	df, ok := result.LinkAnalysis["disavow_file"].(map[string]any)
	if !ok {
		zap.L().Warn("no disavow file in link analysis, skipping")
		return nil
	}
	content, _ := df["content"].(string)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return eris.Wrap(err, "run: write disavow file")
	}
	zap.L().Info("disavow file written", zap.String("path", path))
	return nil
}

func init() {
	runCmd.Flags().StringVarP(&runQuery, "query", "q", "", "natural-language task description (required)")
	runCmd.Flags().StringVar(&runURL, "url", "", "page or site URL the task concerns")
	runCmd.Flags().StringVar(&runTopic, "topic", "", "content topic")
	runCmd.Flags().StringVar(&runKeyword, "keyword", "", "primary keyword")
	runCmd.Flags().StringSliceVar(&runKeywords, "keywords", nil, "keyword list for clustering")
	runCmd.Flags().StringVar(&runTable, "table", "", "backlink export file (csv or xlsx)")
	runCmd.Flags().StringVar(&runDomain, "domain", "", "domain under analysis")
	runCmd.Flags().StringVar(&runLanguage, "language", "", "content language override")
	runCmd.Flags().Float64Var(&runMinRisk, "min-risk", 0, "disavow risk threshold override")
	runCmd.Flags().StringVarP(&runOutFile, "out", "o", "", "write the result JSON to a file instead of stdout")
	runCmd.Flags().StringVar(&runDisavowFile, "disavow-out", "", "write the regenerated disavow file to this path")

	rootCmd.AddCommand(runCmd)
}
