package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/svcctx"
)

// CancelResponse acknowledges a cancel request.
type CancelResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CancelAnalysisEndpoint handles POST /api/analyses/{id}/cancel.
type CancelAnalysisEndpoint struct{}

func (e *CancelAnalysisEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyses/{id}/cancel", e.handler
}

func (e *CancelAnalysisEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Cancel an analysis job
//	@Description	Requests cooperative cancellation. The stage in flight runs to completion; the job stops at the next stage boundary. Cancelling a finished job is a no-op.
//	@Tags			analyses
//	@Produce		json
//	@Param			id	path		string	true	"Job id"
//	@Success		202	{object}	CancelResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/analyses/{id}/cancel [post]
func (e *CancelAnalysisEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	registry := svcctx.JobRegistryFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusInternalServerError, "job registry not available")
		return
	}

	id := r.PathValue("id")
	if !registry.Cancel(id) {
		writeError(w, http.StatusNotFound, "unknown job: "+id)
		return
	}

	writeJSON(w, http.StatusAccepted, CancelResponse{JobID: id, Status: "cancel requested"})
}

func (e *CancelAnalysisEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a running analysis job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CancelResponse
			if err := client.Post(cmd.Context(), "/api/analyses/"+args[0]+"/cancel", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Job %s: %s\n", resp.JobID, resp.Status)
			return nil
		},
	}
}
