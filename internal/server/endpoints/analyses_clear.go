package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/svcctx"
)

// ClearAnalysisEndpoint handles DELETE /api/analyses/{id}.
type ClearAnalysisEndpoint struct{}

func (e *ClearAnalysisEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/analyses/{id}", e.handler
}

func (e *ClearAnalysisEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Clear an analysis job
//	@Description	Removes the job from the registry. A running job gets a cancel request first so its goroutine winds down.
//	@Tags			analyses
//	@Param			id	path	string	true	"Job id"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/analyses/{id} [delete]
func (e *ClearAnalysisEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	registry := svcctx.JobRegistryFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusInternalServerError, "job registry not available")
		return
	}

	id := r.PathValue("id")
	if !registry.Clear(id) {
		writeError(w, http.StatusNotFound, "unknown job: "+id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (e *ClearAnalysisEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <job-id>",
		Short: "Remove an analysis job from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/analyses/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Job %s cleared\n", args[0])
			return nil
		},
	}
}
