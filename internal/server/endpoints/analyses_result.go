package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/jobs"
	"github.com/danbryan/redline/internal/stages"
	"github.com/danbryan/redline/internal/svcctx"
)

// AnalysisResultEndpoint handles GET /api/analyses/{id}/result.
type AnalysisResultEndpoint struct{}

func (e *AnalysisResultEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/analyses/{id}/result", e.handler
}

func (e *AnalysisResultEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Fetch the finished analysis bundle
//	@Description	Returns the full result bundle of a completed job. Jobs that are still running answer 409.
//	@Tags			analyses
//	@Produce		json
//	@Param			id	path		string	true	"Job id"
//	@Success		200	{object}	stages.Bundle
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/analyses/{id}/result [get]
func (e *AnalysisResultEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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
	if snap.Status != jobs.StatusDone {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("job %s is %s, not done", id, snap.Status))
		return
	}

	writeJSON(w, http.StatusOK, snap.Result)
}

func (e *AnalysisResultEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "result <job-id>",
		Short: "Fetch a finished analysis result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var bundle stages.Bundle
			if err := client.Get(cmd.Context(), "/api/analyses/"+args[0]+"/result", &bundle); err != nil {
				return err
			}
			return api.Output(bundle)
		},
	}
}
