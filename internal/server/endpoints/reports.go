package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/svcctx"
)

// ReportFileEndpoint serves saved report files under GET /reports/{file}.
type ReportFileEndpoint struct{}

func (e *ReportFileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/reports/{file}", e.handler
}

func (e *ReportFileEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Download a saved report
//	@Tags			reports
//	@Produce		json
//	@Param			file	path	string	true	"Report file name"
//	@Success		200		{file}	file
//	@Failure		404		{object}	ErrorResponse
//	@Router			/reports/{file} [get]
func (e *ReportFileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.ReportsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusInternalServerError, "report store not available")
		return
	}

	name := r.PathValue("file")
	// Reject anything that is not a bare file name.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	path := filepath.Join(store.Dir(), name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	switch filepath.Ext(name) {
	case ".json":
		w.Header().Set("Content-Type", "application/json")
	case ".md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	http.ServeFile(w, r, path)
}

func (e *ReportFileEndpoint) Command(getServerURL func() string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Download a saved report file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := getServerURL() + "/reports/" + args[0]
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("report download failed: %s", resp.Status)
			}

			dest := output
			if dest == "" {
				dest = args[0]
			}
			f, err := os.Create(dest)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := f.ReadFrom(resp.Body); err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", dest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (defaults to the report name)")
	return cmd
}
