package run

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

const (
	compiledSuccessfully = "Compiled Successfully"
	noOutput             = "No output"
)

// RunRequest is the body of POST /run
type RunRequest struct {
	Language  string            `json:"language"`
	Code      string            `json:"code"`
	TestCases []domain.TestCase `json:"testcases"`
}

// TestResult is one evaluated case in caller order
type TestResult struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	ActualOutput   string `json:"actualOutput"`
	Status         string `json:"status"`
	Runtime        string `json:"runtime"`
}

// RunResponse covers the compile failure, case-based and free run shapes
type RunResponse struct {
	Status         domain.Status `json:"status"`
	CompileMessage string        `json:"compileMessage,omitempty"`
	TestResults    []TestResult  `json:"testResults,omitempty"`
	Output         *string       `json:"output,omitempty"`
	Runtime        string        `json:"runtime,omitempty"`
	MemoryUsage    string        `json:"memoryUsage,omitempty"`
	ExitCode       *int          `json:"exitCode,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// NewRunResponse renders a settled result
func NewRunResponse(result *domain.SubmissionResult) *RunResponse {
	resp := &RunResponse{Status: result.Status}

	switch result.Status {
	case domain.StatusCompileError:
		resp.CompileMessage = strings.Join(result.CompileDiagnostics, ", ")
		return resp
	case domain.StatusInternalError:
		resp.Error = result.Message
		return resp
	}

	resp.CompileMessage = compiledSuccessfully
	if result.FreeRun != nil {
		output := result.FreeRun.Output
		if output == "" {
			output = noOutput
		}
		exitCode := result.FreeRun.ExitCode
		resp.Output = &output
		resp.Runtime = formatRuntime(result.FreeRun.Elapsed)
		resp.MemoryUsage = fmt.Sprintf("%d KB", result.FreeRun.MemoryKB)
		resp.ExitCode = &exitCode
		return resp
	}
	if len(result.CaseVerdicts) == 0 && result.Message != "" {
		// cancelled before any run finished
		message := result.Message
		exitCode := domain.TimeoutExitCode
		resp.Output = &message
		resp.ExitCode = &exitCode
		return resp
	}

	resp.TestResults = make([]TestResult, 0, len(result.CaseVerdicts))
	for _, v := range result.CaseVerdicts {
		status := "SUCCESS"
		if v.Verdict != domain.VerdictPass {
			status = "FAIL"
		}
		resp.TestResults = append(resp.TestResults, TestResult{
			Input:          v.Input,
			ExpectedOutput: v.ExpectedOutput,
			ActualOutput:   v.ActualOutput,
			Status:         status,
			Runtime:        formatRuntime(v.Elapsed),
		})
	}
	return resp
}

func formatRuntime(d time.Duration) string {
	return fmt.Sprintf("%.2f ms", float64(d)/float64(time.Millisecond))
}
