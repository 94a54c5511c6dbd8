package stages

import (
	"context"
	"log/slog"
	"time"

	"github.com/danbryan/redline/internal/extract"
	"github.com/danbryan/redline/internal/jobs"
)

// ReportSaver persists a finished bundle and returns the saved file name
// plus the URL path it is served under.
type ReportSaver interface {
	Save(ctx context.Context, name string, bundle *Bundle) (file string, url string, err error)
}

// Alerter sends a notification when a contract is judged exploitative.
type Alerter interface {
	SendAlert(ctx context.Context, recipient, contractName, verdictJSON string) error
}

// PipelineConfig wires one analysis run.
type PipelineConfig struct {
	ContractText string
	ContractName string
	Model        string

	Executor Executor
	Reports  ReportSaver // optional
	Alerter  Alerter     // optional

	AlertRecipient string
	Logger         *slog.Logger
}

// BuildPipeline assembles the analytic stages and the finalize step into a
// runnable pipeline. Finalize derives the alert verdict from the merged
// risks, records it as a partial, saves the report, and fires the alert
// notification when the verdict is exploitative.
func BuildPipeline(cfg PipelineConfig) jobs.Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stageList := make([]jobs.Stage, 0, len(Order))
	for _, def := range Order {
		def := def
		stageList = append(stageList, jobs.Stage{
			Label: def.Label,
			Agent: def.Agent,
			Run: func(ctx context.Context, prior map[string]string) (string, error) {
				return cfg.Executor.Execute(ctx, Request{
					Label:    def.Label,
					Agent:    def.Agent,
					Contract: cfg.ContractText,
					Prior:    prior,
				})
			},
		})
	}

	finalize := func(ctx context.Context, outputs map[string]string) (map[string]string, any, error) {
		risks := extract.ResolveArray(outputs[LabelLegalRisks])
		verdict, alertRaw := DeriveAlert(risks)

		bundle := BundleFromOutputs(outputs, alertRaw, Meta{
			Contract:    cfg.ContractName,
			Model:       cfg.Model,
			GeneratedAt: time.Now().UTC(),
		})

		if cfg.Reports != nil {
			file, url, err := cfg.Reports.Save(ctx, cfg.ContractName, bundle)
			if err != nil {
				return nil, nil, err
			}
			bundle.ReportFile = file
			bundle.ReportURL = url
		}

		if verdict.Exploitative && cfg.Alerter != nil && cfg.AlertRecipient != "" {
			// Best effort. A failed notification never fails the job.
			if err := cfg.Alerter.SendAlert(ctx, cfg.AlertRecipient, cfg.ContractName, alertRaw); err != nil {
				logger.Warn("alert notification failed",
					"contract", cfg.ContractName, "error", err)
			}
		}

		return map[string]string{LabelAlert: alertRaw}, bundle, nil
	}

	return jobs.Pipeline{Stages: stageList, Finalize: finalize}
}
