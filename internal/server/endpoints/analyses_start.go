package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/contract"
	"github.com/danbryan/redline/internal/stages"
	"github.com/danbryan/redline/internal/svcctx"
)

// StartAnalysisRequest is the request body for starting an analysis.
// Either Text (with Name) or Path must be set; Text wins when both are.
type StartAnalysisRequest struct {
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
	Path string `json:"path,omitempty"`
}

// StartAnalysisResponse returns the id of the launched job.
type StartAnalysisResponse struct {
	JobID    string `json:"job_id"`
	Contract string `json:"contract"`
	Steps    int    `json:"steps"`
}

// StartAnalysisEndpoint handles POST /api/analyses.
type StartAnalysisEndpoint struct{}

func (e *StartAnalysisEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyses", e.handler
}

func (e *StartAnalysisEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start a contract analysis
//	@Description	Launches the analysis pipeline for a contract and returns a job id to poll. Accepts a JSON body with inline text or a server-side path, or a multipart upload with a "file" field.
//	@Tags			analyses
//	@Accept			json
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			request	body		StartAnalysisRequest	true	"Contract source"
//	@Success		202		{object}	StartAnalysisResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/analyses [post]
func (e *StartAnalysisEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var doc *contract.Document
	var err error

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		doc, err = receiveUpload(r)
	} else {
		var req StartAnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		doc, err = loadDocument(req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, total, err := launchAnalysis(r.Context(), doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, StartAnalysisResponse{
		JobID:    id,
		Contract: doc.Name,
		Steps:    total,
	})
}

const maxUploadBytes = 64 << 20

// receiveUpload stores a multipart "file" upload under the uploads directory
// and extracts its text. PDFs need an on-disk path for text extraction, so
// the raw upload is always written first.
func receiveUpload(r *http.Request) (*contract.Document, error) {
	dir := svcctx.HomeFrom(r.Context())
	if dir == nil {
		return nil, fmt.Errorf("uploads directory not available")
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart request: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file field: %w", err)
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." {
		return nil, fmt.Errorf("upload has no file name")
	}
	dest := dir.UploadPath(name)
	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	return contract.Load(dest)
}

func loadDocument(req StartAnalysisRequest) (*contract.Document, error) {
	switch {
	case strings.TrimSpace(req.Text) != "":
		name := req.Name
		if name == "" {
			name = "contract"
		}
		return contract.FromText(name, req.Text)
	case req.Path != "":
		return contract.Load(req.Path)
	default:
		return nil, fmt.Errorf("either text or path is required")
	}
}

// launchAnalysis builds the pipeline from the services in ctx and starts the
// job. The contract text is kept under the uploads directory so follow-up
// chat requests can reload it by job id.
func launchAnalysis(ctx context.Context, doc *contract.Document) (string, int, error) {
	svcs := svcctx.ServicesFrom(ctx)
	if svcs == nil || svcs.Runner == nil {
		return "", 0, fmt.Errorf("job runner not available")
	}

	cfg := svcs.ConfigManager.Get()

	client, err := svcs.Providers.DefaultChat()
	if err != nil {
		return "", 0, fmt.Errorf("no chat provider available: %w", err)
	}

	model := ""
	if p, ok := cfg.GetProvider(cfg.Analysis.Provider); ok {
		model = p.Model
	}

	if svcs.Home != nil {
		if err := os.WriteFile(svcs.Home.UploadPath(doc.Name+".txt"), []byte(doc.Text), 0o644); err != nil {
			svcs.Logger.Warn("could not persist contract text", "contract", doc.Name, "error", err)
		}
	}

	executor := stages.NewLLMExecutor(stages.LLMExecutorConfig{
		Client:       client,
		Model:        model,
		Temperature:  cfg.Analysis.Temperature,
		ChunkWords:   cfg.Analysis.ChunkWords,
		ChunkOverlap: cfg.Analysis.ChunkOverlap,
		Logger:       svcs.Logger,
	})

	pcfg := stages.PipelineConfig{
		ContractText: doc.Text,
		ContractName: doc.Name,
		Model:        model,
		Executor:     executor,
		Logger:       svcs.Logger,
	}
	if svcs.Reports != nil {
		pcfg.Reports = svcs.Reports
	}
	if cfg.Alerts.Enabled && svcs.Alerter != nil {
		pcfg.Alerter = svcs.Alerter
		pcfg.AlertRecipient = cfg.Alerts.Recipient
	}

	pipeline := stages.BuildPipeline(pcfg)
	id := svcs.Runner.Launch(context.WithoutCancel(ctx), pipeline)
	return id, pipeline.Total(), nil
}

func (e *StartAnalysisEndpoint) Command(getServerURL func() string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "start <file>",
		Short: "Start analysing a contract file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := contract.Load(args[0])
			if err != nil {
				return err
			}
			if name != "" {
				doc, err = contract.FromText(name, doc.Text)
				if err != nil {
					return err
				}
			}

			client := api.NewClient(getServerURL())
			var resp StartAnalysisResponse
			err = client.Post(cmd.Context(), "/api/analyses", StartAnalysisRequest{
				Name: doc.Name,
				Text: doc.Text,
			}, &resp)
			if err != nil {
				return err
			}
			fmt.Printf("Started job %s for %s (%d steps)\n", resp.JobID, resp.Contract, resp.Steps)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Override the contract name")
	return cmd
}
