package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/jobs"
	"github.com/danbryan/redline/internal/providers"
	"github.com/danbryan/redline/internal/report"
	"github.com/danbryan/redline/internal/stages"
	"github.com/danbryan/redline/internal/svcctx"
)

// ChatRequest asks a follow-up question about an analysed contract. JobID
// points at a completed analysis; ContractText may be supplied instead to
// ask about a contract that was never analysed.
type ChatRequest struct {
	JobID        string `json:"job_id,omitempty"`
	ContractText string `json:"contract_text,omitempty"`
	// Analysis optionally grounds the answer in a prior analysis when no
	// job id is given.
	Analysis string `json:"analysis,omitempty"`
	Question string `json:"question"`
}

// ChatResponse is the model's answer.
type ChatResponse struct {
	Answer      string `json:"answer"`
	Provider    string `json:"provider,omitempty"`
	Model       string `json:"model,omitempty"`
	TotalTokens int    `json:"total_tokens,omitempty"`
}

// ChatEndpoint handles POST /api/chat.
type ChatEndpoint struct{}

func (e *ChatEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/chat", e.handler
}

func (e *ChatEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Ask a question about a contract
//	@Description	Answers a question grounded in the contract text and, when a job id is given, the finished analysis bundle.
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ChatRequest	true	"Question"
//	@Success		200		{object}	ChatResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/chat [post]
func (e *ChatEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	contractText := req.ContractText
	analysis := req.Analysis

	if req.JobID != "" {
		registry := svcctx.JobRegistryFrom(r.Context())
		if registry == nil {
			writeError(w, http.StatusInternalServerError, "job registry not available")
			return
		}
		snap, ok := registry.Get(req.JobID)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown job: "+req.JobID)
			return
		}
		if snap.Status != jobs.StatusDone {
			writeError(w, http.StatusConflict,
				fmt.Sprintf("job %s is %s, not done", req.JobID, snap.Status))
			return
		}
		bundle, ok := snap.Result.(*stages.Bundle)
		if !ok {
			writeError(w, http.StatusInternalServerError, "job result is not an analysis bundle")
			return
		}
		analysis = report.RenderMarkdown(bundle)
		if contractText == "" {
			contractText = loadUploadedText(r, bundle.Meta.Contract)
		}
	}

	if strings.TrimSpace(contractText) == "" {
		writeError(w, http.StatusBadRequest, "contract text unavailable; supply contract_text or a job id with a stored upload")
		return
	}

	registry := svcctx.ProvidersFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusInternalServerError, "provider registry not available")
		return
	}
	client, err := registry.DefaultChat()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "no chat provider available: "+err.Error())
		return
	}

	res, err := client.Chat(r.Context(), &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: "You are a contract analyst answering questions strictly from the supplied contract."},
			{Role: "user", Content: stages.ChatPrompt(contractText, analysis, req.Question)},
		},
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, "chat failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:      strings.TrimSpace(res.Content),
		Provider:    res.Provider,
		Model:       res.ModelUsed,
		TotalTokens: res.TotalTokens,
	})
}

// loadUploadedText reloads the contract text persisted when the analysis was
// started. Missing uploads are not an error; the caller falls back to
// requiring contract_text.
func loadUploadedText(r *http.Request, contractName string) string {
	dir := svcctx.HomeFrom(r.Context())
	if dir == nil || contractName == "" {
		return ""
	}
	data, err := os.ReadFile(dir.UploadPath(contractName + ".txt"))
	if err != nil {
		return ""
	}
	return string(data)
}

func (e *ChatEndpoint) Command(getServerURL func() string) *cobra.Command {
	var jobID string
	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask a question about an analysed contract",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ChatResponse
			err := client.Post(cmd.Context(), "/api/chat", ChatRequest{
				JobID:    jobID,
				Question: strings.Join(args, " "),
			}, &resp)
			if err != nil {
				return err
			}
			fmt.Println(resp.Answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobID, "job", "", "Job id of a completed analysis")
	return cmd
}
