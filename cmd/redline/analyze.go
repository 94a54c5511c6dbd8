package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/contract"
	"github.com/danbryan/redline/internal/home"
	"github.com/danbryan/redline/internal/jobs"
	"github.com/danbryan/redline/internal/poller"
	"github.com/danbryan/redline/internal/report"
	"github.com/danbryan/redline/internal/server/endpoints"
)

var (
	analyzeName   string
	analyzeNoWait bool
	pollInterval  time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyse a contract and wait for the result",
	Long: `Analyse a contract file (PDF, text, or markdown) on a running server.

Starts an analysis job, polls it until it finishes, and prints the result.
The last job and result are remembered under the home state directory so
"redline result" and "redline clear" can omit the job id.

Examples:
  redline analyze msa.pdf
  redline analyze nda.txt --name "Acme NDA"
  redline analyze msa.pdf --no-wait     # Just start the job`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		doc, err := contract.Load(args[0])
		if err != nil {
			return err
		}
		if analyzeName != "" {
			doc, err = contract.FromText(analyzeName, doc.Text)
			if err != nil {
				return err
			}
		}

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		client := api.NewClient(serverURL)
		var started endpoints.StartAnalysisResponse
		err = client.Post(ctx, "/api/analyses", endpoints.StartAnalysisRequest{
			Name: doc.Name,
			Text: doc.Text,
		}, &started)
		if err != nil {
			return err
		}
		fmt.Printf("Started job %s for %s (%d steps)\n", started.JobID, started.Contract, started.Steps)

		if err := poller.SaveLastJob(h, poller.LastJob{
			JobID:     started.JobID,
			Contract:  started.Contract,
			Server:    serverURL,
			StartedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		if analyzeNoWait {
			fmt.Printf("Poll with: redline api analyses status %s\n", started.JobID)
			return nil
		}

		p := poller.New(poller.Config{Client: client, Interval: pollInterval})
		snap, err := p.Wait(ctx, started.JobID)
		if err != nil {
			return err
		}
		if snap.Status != jobs.StatusDone {
			return fmt.Errorf("job %s finished %s: %s", snap.ID, snap.Status, snap.Message)
		}

		bundle, err := p.FetchResult(ctx, started.JobID)
		if err != nil {
			return err
		}
		if err := poller.SaveLastResult(h, bundle); err != nil {
			return err
		}

		if api.GetOutputFormat() == api.OutputFormatJSON {
			return api.Output(bundle)
		}

		fmt.Println()
		fmt.Print(report.RenderMarkdown(bundle))
		if bundle.ReportURL != "" {
			fmt.Printf("\nFull report: %s%s\n", serverURL, bundle.ReportURL)
		}
		return nil
	},
}

var resultCmd = &cobra.Command{
	Use:   "result",
	Short: "Show the last analysis result",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		bundle, err := poller.LoadLastResult(h)
		if err != nil {
			return err
		}
		return api.Output(bundle)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Cancel and remove the last analysis job",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		last, err := poller.LoadLastJob(h)
		if err != nil {
			return err
		}

		p := poller.New(poller.Config{Client: api.NewClient(last.Server)})
		if err := p.Clear(cmd.Context(), last.JobID); err != nil {
			return err
		}
		poller.ClearState(h)
		fmt.Printf("Cleared job %s (%s)\n", last.JobID, last.Contract)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeName, "name", "", "Override the contract name")
	analyzeCmd.Flags().BoolVar(&analyzeNoWait, "no-wait", false, "Start the job without waiting for it")
	analyzeCmd.Flags().DurationVar(&pollInterval, "interval", 1200*time.Millisecond, "Poll interval")
	analyzeCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8690", "Server URL")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(clearCmd)
}
