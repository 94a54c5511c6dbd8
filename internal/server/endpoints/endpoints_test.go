package endpoints

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danbryan/redline/internal/config"
	"github.com/danbryan/redline/internal/home"
	"github.com/danbryan/redline/internal/jobs"
	"github.com/danbryan/redline/internal/providers"
	"github.com/danbryan/redline/internal/report"
	"github.com/danbryan/redline/internal/stages"
	"github.com/danbryan/redline/internal/svcctx"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testContract = `Master Services Agreement between Acme Corp and Supplier Ltd.
Supplier shall indemnify Acme for all losses without limit.
Payment is due within 90 days of invoice.
Either party may terminate with 5 days notice.`

// mockResponses keys on phrases unique to each stage prompt so the mock can
// serve every stage plus the chat prompt from one map.
func mockResponses() map[string]string {
	return map[string]string{
		"primary purpose":            `{"summary": "A master services agreement between Acme and Supplier."}`,
		"commercial clauses":         `[{"clause": "Payment", "summary": "Invoices due within 90 days"}]`,
		"identify at least 3-8":      "```json\n" + `[{"clause": "Indemnity", "risk": "Unlimited liability", "description": "Supplier indemnifies without cap", "fairness": "unfair", "favours": "buyer", "severity": "high"}]` + "\n```",
		"practical mitigations":      `[{"clause": "Indemnity", "mitigation": "Cap indemnity at fees paid", "negotiation_points": "12 month cap"}]`,
		"bullet points only":         "You: must pay invoices within 90 days.\nWatch out: unlimited indemnity.",
		"answer strictly from":       "No. Payment is due within 90 days (Payment clause).",
	}
}

// newTestServer builds a mux with every endpoint registered and a services
// middleware mirroring what the real server installs.
func newTestServer(t *testing.T) (*httptest.Server, *svcctx.Services) {
	t.Helper()

	dir, err := home.New(filepath.Join(t.TempDir(), ".redline"))
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}

	mgr, err := config.NewManager("")
	if err != nil {
		t.Fatalf("config.NewManager() error = %v", err)
	}

	registry := providers.NewRegistry()
	registry.RegisterChat("mock", &providers.MockClient{Respond: mockResponses()})

	jobRegistry := jobs.NewRegistry(jobs.RegistryConfig{})
	runner := jobs.NewRunner(jobs.RunnerConfig{Registry: jobRegistry})

	reports, err := report.NewStore(report.StoreConfig{Dir: dir.ReportsPath()})
	if err != nil {
		t.Fatalf("report.NewStore() error = %v", err)
	}

	svcs := &svcctx.Services{
		ConfigManager: mgr,
		Home:          dir,
		Logger:        testLogger(),
		JobRegistry:   jobRegistry,
		Runner:        runner,
		Providers:     registry,
		Reports:       reports,
	}

	mux := http.NewServeMux()
	passthrough := func(next http.HandlerFunc) http.HandlerFunc { return next }
	for _, ep := range All(Config{}) {
		method, path, handler := ep.Route()
		h := handler
		if ep.RequiresInit() {
			h = passthrough(handler)
		}
		mux.HandleFunc(method+" "+path, h)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), svcs)))
	}))
	t.Cleanup(srv.Close)
	return srv, svcs
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func waitForStatus(t *testing.T, reg *jobs.Registry, id string, want jobs.Status) jobs.Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := reg.Get(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		if snap.Status == want {
			return snap
		}
		if snap.Status.Terminal() {
			t.Fatalf("job %s reached %s (message %q), want %s", id, snap.Status, snap.Message, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach %s in time", id, want)
	return jobs.Snapshot{}
}

func TestStartAnalysisEndpoint(t *testing.T) {
	srv, svcs := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/analyses", StartAnalysisRequest{
		Name: "Acme MSA",
		Text: testContract,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	started := decodeBody[StartAnalysisResponse](t, resp)
	if started.JobID == "" {
		t.Fatal("start returned empty job id")
	}
	if started.Contract != "acme_msa" {
		t.Errorf("contract name = %q, want %q", started.Contract, "acme_msa")
	}
	if started.Steps != 6 {
		t.Errorf("steps = %d, want 6", started.Steps)
	}

	snap := waitForStatus(t, svcs.JobRegistry, started.JobID, jobs.StatusDone)
	if snap.Step != snap.Total {
		t.Errorf("finished job step = %d, want %d", snap.Step, snap.Total)
	}
	if _, ok := snap.Partials[stages.LabelLegalRisks]; !ok {
		t.Error("missing legal_risks partial")
	}

	// Contract text is persisted for follow-up chat
	upload := svcs.Home.UploadPath("acme_msa.txt")
	if _, err := os.Stat(upload); err != nil {
		t.Errorf("uploaded contract not persisted: %v", err)
	}
}

func TestStartAnalysisEndpointMultipartUpload(t *testing.T) {
	srv, svcs := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "Supply Deal.txt")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(testContract)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/analyses", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("upload status = %d, want 202", resp.StatusCode)
	}
	started := decodeBody[StartAnalysisResponse](t, resp)
	if started.Contract != "supply_deal" {
		t.Errorf("contract name = %q, want supply_deal", started.Contract)
	}

	// Raw upload lands in the uploads directory
	if _, err := os.Stat(svcs.Home.UploadPath("Supply Deal.txt")); err != nil {
		t.Errorf("raw upload not stored: %v", err)
	}

	waitForStatus(t, svcs.JobRegistry, started.JobID, jobs.StatusDone)
}

func TestStartAnalysisEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/analyses", StartAnalysisRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty request status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	resp.Body.Close()
}

func TestAnalysisStatusAndResult(t *testing.T) {
	srv, svcs := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/analyses", StartAnalysisRequest{
		Name: "deal",
		Text: testContract,
	})
	started := decodeBody[StartAnalysisResponse](t, resp)
	waitForStatus(t, svcs.JobRegistry, started.JobID, jobs.StatusDone)

	statusResp, err := http.Get(srv.URL + "/api/analyses/" + started.JobID)
	if err != nil {
		t.Fatalf("GET status error = %v", err)
	}
	if statusResp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200", statusResp.StatusCode)
	}
	snap := decodeBody[jobs.Snapshot](t, statusResp)
	if snap.Status != jobs.StatusDone {
		t.Errorf("status = %s, want done", snap.Status)
	}

	resultResp, err := http.Get(srv.URL + "/api/analyses/" + started.JobID + "/result")
	if err != nil {
		t.Fatalf("GET result error = %v", err)
	}
	if resultResp.StatusCode != http.StatusOK {
		t.Fatalf("result code = %d, want 200", resultResp.StatusCode)
	}
	bundle := decodeBody[stages.Bundle](t, resultResp)
	if !strings.Contains(bundle.Purpose, "master services agreement") {
		t.Errorf("bundle purpose = %q, want summary text", bundle.Purpose)
	}
	if bundle.Meta.Contract != "deal" {
		t.Errorf("bundle contract = %q, want deal", bundle.Meta.Contract)
	}
	if bundle.ReportFile != "deal_analysis.json" {
		t.Errorf("report file = %q, want deal_analysis.json", bundle.ReportFile)
	}
}

func TestAnalysisStatusUnknownJob(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/analyses/nope")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAnalysisResultNotDone(t *testing.T) {
	srv, svcs := newTestServer(t)

	// A pending job that never runs
	job := svcs.JobRegistry.Create(6)

	resp, err := http.Get(srv.URL + "/api/analyses/" + job.ID() + "/result")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestCancelAndClearEndpoints(t *testing.T) {
	srv, svcs := newTestServer(t)

	job := svcs.JobRegistry.Create(6)

	resp := postJSON(t, srv.URL+"/api/analyses/"+job.ID()+"/cancel", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("cancel status = %d, want 202", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/analyses/"+job.ID(), nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("clear status = %d, want 204", delResp.StatusCode)
	}

	if _, ok := svcs.JobRegistry.Get(job.ID()); ok {
		t.Error("job still present after clear")
	}

	resp = postJSON(t, srv.URL+"/api/analyses/"+job.ID()+"/cancel", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cancel after clear status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestChatEndpointWithContractText(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/chat", ChatRequest{
		ContractText: testContract,
		Question:     "Can we pay in 120 days?",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, want 200", resp.StatusCode)
	}
	answer := decodeBody[ChatResponse](t, resp)
	if !strings.Contains(answer.Answer, "90 days") {
		t.Errorf("answer = %q, want payment terms cited", answer.Answer)
	}
	if answer.Provider != "mock" {
		t.Errorf("provider = %q, want mock", answer.Provider)
	}
	if answer.TotalTokens <= 0 {
		t.Errorf("total tokens = %d, want usage reported", answer.TotalTokens)
	}
}

func TestChatEndpointWithJobID(t *testing.T) {
	srv, svcs := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/analyses", StartAnalysisRequest{
		Name: "chatdeal",
		Text: testContract,
	})
	started := decodeBody[StartAnalysisResponse](t, resp)
	waitForStatus(t, svcs.JobRegistry, started.JobID, jobs.StatusDone)

	chatResp := postJSON(t, srv.URL+"/api/chat", ChatRequest{
		JobID:    started.JobID,
		Question: "Who indemnifies whom?",
	})
	if chatResp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, want 200", chatResp.StatusCode)
	}
	answer := decodeBody[ChatResponse](t, chatResp)
	if answer.Answer == "" {
		t.Error("chat returned empty answer")
	}
}

func TestChatEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		req  ChatRequest
		want int
	}{
		{"missing question", ChatRequest{ContractText: testContract}, http.StatusBadRequest},
		{"missing contract", ChatRequest{Question: "anything?"}, http.StatusBadRequest},
		{"unknown job", ChatRequest{JobID: "nope", Question: "anything?"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/chat", tt.req)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHealthAndReadyEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	readyResp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready error = %v", err)
	}
	if readyResp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want 200", readyResp.StatusCode)
	}
	ready := decodeBody[HealthResponse](t, readyResp)
	if ready.Providers != 1 {
		t.Errorf("providers = %d, want 1", ready.Providers)
	}
}

func TestReadyEndpointDegradedWithoutProviders(t *testing.T) {
	mux := http.NewServeMux()
	ep := &ReadyEndpoint{}
	method, path, handler := ep.Route()
	mux.HandleFunc(method+" "+path, handler)

	svcs := &svcctx.Services{Providers: providers.NewRegistry()}
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	req = req.WithContext(svcctx.WithServices(req.Context(), svcs))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", rec.Code)
	}
}

func TestReportFileEndpoint(t *testing.T) {
	srv, svcs := newTestServer(t)

	path := filepath.Join(svcs.Reports.Dir(), "deal_analysis.json")
	if err := os.WriteFile(path, []byte(`{"purpose":"test"}`), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	resp, err := http.Get(srv.URL + "/reports/deal_analysis.json")
	if err != nil {
		t.Fatalf("GET report error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("report status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("content type = %q, want application/json", ct)
	}
}

func TestReportFileEndpointRejectsTraversal(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, name := range []string{"..%2F..%2Fetc%2Fpasswd", ".hidden", "missing.json"} {
		resp, err := http.Get(srv.URL + "/reports/" + name)
		if err != nil {
			t.Fatalf("GET %s error = %v", name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", name, resp.StatusCode)
		}
	}
}
