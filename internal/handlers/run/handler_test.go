package run

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/handlers"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

type fakeJobService struct {
	result *domain.SubmissionResult
	err    error
	got    *domain.Submission
}

func (f *fakeJobService) Submit(_ context.Context, submission *domain.Submission) (*domain.SubmissionResult, error) {
	f.got = submission
	return f.result, f.err
}

type fakeExecutionService struct {
	languages map[string]bool
}

func (f *fakeExecutionService) Execute(context.Context, *domain.Submission) *domain.SubmissionResult {
	return nil
}

func (f *fakeExecutionService) Supports(language string) bool {
	return f.languages[language]
}

func (f *fakeExecutionService) Languages() []*domain.LanguageConfig {
	return []*domain.LanguageConfig{{Language: "python", TimeoutMs: 5000, Active: true}}
}

func (f *fakeExecutionService) RefreshLimits(context.Context) error {
	return nil
}

func newTestRouter(jobs *fakeJobService) *mux.Router {
	r := mux.NewRouter()
	h := NewRunHandler(jobs, &fakeExecutionService{languages: map[string]bool{"python": true}}, time.Second, logging.NewNopLogger())
	h.RegisterRoutes(r, handlers.New("", nil, logging.NewNopLogger()))
	return r
}

func post(t *testing.T, r http.Handler, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return rec, out
}

func TestRunCaseBased(t *testing.T) {
	jobs := &fakeJobService{result: &domain.SubmissionResult{
		Status: domain.StatusFail,
		CaseVerdicts: []domain.CaseVerdict{
			{Input: "2 3", ExpectedOutput: "5", ActualOutput: "5", Verdict: domain.VerdictPass, Elapsed: 1500 * time.Microsecond},
			{Input: "1 1", ExpectedOutput: "3", ActualOutput: "2", Verdict: domain.VerdictFail, Elapsed: 2 * time.Millisecond},
		},
	}}
	rec, out := post(t, newTestRouter(jobs), `{"language":"Python","code":"print(1)","testcases":[{"input":"2 3","output":"5"},{"input":"1 1","output":"3"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if jobs.got.Language != "python" || len(jobs.got.TestCases) != 2 || jobs.got.TestCases[1].ExpectedOutput != "3" {
		t.Errorf("submission = %+v", jobs.got)
	}
	if out["compileMessage"] != "Compiled Successfully" || out["status"] != "FAIL" {
		t.Errorf("response = %v", out)
	}
	results := out["testResults"].([]interface{})
	first := results[0].(map[string]interface{})
	second := results[1].(map[string]interface{})
	if first["status"] != "SUCCESS" || first["runtime"] != "1.50 ms" || second["status"] != "FAIL" {
		t.Errorf("testResults = %v", results)
	}
}

func TestRunFreeRun(t *testing.T) {
	jobs := &fakeJobService{result: &domain.SubmissionResult{
		Status:  domain.StatusSuccess,
		FreeRun: &domain.FreeRunReport{Output: "", ExitCode: 0, MemoryKB: 2048, Elapsed: 12 * time.Millisecond},
	}}
	_, out := post(t, newTestRouter(jobs), `{"language":"python","code":"pass"}`)

	if out["output"] != "No output" || out["memoryUsage"] != "2048 KB" || out["runtime"] != "12.00 ms" {
		t.Errorf("response = %v", out)
	}
	if code, ok := out["exitCode"].(float64); !ok || code != 0 {
		t.Errorf("exitCode = %v, want 0", out["exitCode"])
	}
}

func TestRunCompileError(t *testing.T) {
	jobs := &fakeJobService{result: &domain.SubmissionResult{
		Status:             domain.StatusCompileError,
		CompileDiagnostics: []string{"main.cpp:1: error", "expected ';'"},
	}}
	_, out := post(t, newTestRouter(jobs), `{"language":"python","code":"x"}`)

	if out["compileMessage"] != "main.cpp:1: error, expected ';'" {
		t.Errorf("compileMessage = %v", out["compileMessage"])
	}
	if _, ok := out["testResults"]; ok {
		t.Error("compile error carries testResults")
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		jobs       *fakeJobService
		wantStatus int
	}{
		{name: "bad json", body: `{`, jobs: &fakeJobService{}, wantStatus: http.StatusBadRequest},
		{name: "missing language", body: `{"code":"x"}`, jobs: &fakeJobService{}, wantStatus: http.StatusBadRequest},
		{name: "unsupported language", body: `{"language":"cobol","code":"x"}`, jobs: &fakeJobService{}, wantStatus: http.StatusBadRequest},
		{name: "queue timeout", body: `{"language":"python","code":"x"}`, jobs: &fakeJobService{err: errs.ErrJobTimeout}, wantStatus: http.StatusGatewayTimeout},
		{name: "broker failure", body: `{"language":"python","code":"x"}`, jobs: &fakeJobService{err: errors.New("dial tcp: refused")}, wantStatus: http.StatusInternalServerError},
		{
			name:       "internal error",
			body:       `{"language":"python","code":"x"}`,
			jobs:       &fakeJobService{result: &domain.SubmissionResult{Status: domain.StatusInternalError, Message: "internal error"}},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, newTestRouter(tt.jobs), tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if msg, _ := out["error"].(string); strings.Contains(msg, "dial tcp") {
				t.Errorf("error leaks detail: %q", msg)
			}
		})
	}
}

func TestGetLanguages(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeJobService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/languages", nil))

	var out struct {
		Languages []domain.LanguageConfig `json:"languages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Languages) != 1 || out.Languages[0].Language != "python" {
		t.Errorf("languages = %+v", out.Languages)
	}
}

func TestNewRunResponseCancelled(t *testing.T) {
	resp := NewRunResponse(&domain.SubmissionResult{Status: domain.StatusRuntimeError, Message: "execution timed out"})
	if resp.Output == nil || *resp.Output != "execution timed out" || *resp.ExitCode != domain.TimeoutExitCode {
		t.Errorf("NewRunResponse() = %+v", resp)
	}
}
