package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/jobs"
	"github.com/danbryan/redline/internal/svcctx"
)

// AnalysisStatusEndpoint handles GET /api/analyses/{id}.
type AnalysisStatusEndpoint struct{}

func (e *AnalysisStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/analyses/{id}", e.handler
}

func (e *AnalysisStatusEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Poll an analysis job
//	@Description	Returns the job's current status, step counter, and the partial outputs produced so far.
//	@Tags			analyses
//	@Produce		json
//	@Param			id	path		string	true	"Job id"
//	@Success		200	{object}	jobs.Snapshot
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/analyses/{id} [get]
func (e *AnalysisStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	registry := svcctx.JobRegistryFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusInternalServerError, "job registry not available")
		return
	}

	id := r.PathValue("id")
	snap, ok := registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job: "+id)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (e *AnalysisStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of an analysis job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var snap jobs.Snapshot
			if err := client.Get(cmd.Context(), "/api/analyses/"+args[0], &snap); err != nil {
				return err
			}
			fmt.Printf("Job %s: %s (step %d/%d)\n", snap.ID, snap.Status, snap.Step, snap.Total)
			if snap.CurrentLabel != "" {
				fmt.Printf("Current stage: %s (%s)\n", snap.CurrentLabel, snap.CurrentAgent)
			}
			if snap.Message != "" {
				fmt.Printf("Message: %s\n", snap.Message)
			}
			for label := range snap.Partials {
				fmt.Printf("Partial ready: %s\n", label)
			}
			return nil
		},
	}
}
