package domain

import (
	"time"

	"github.com/google/uuid"
)

// Submission represents a code submission to be executed
type Submission struct {
	ID          uuid.UUID  `json:"id"`
	Language    string     `json:"language"`
	Code        string     `json:"code"`
	TestCases   []TestCase `json:"testCases"`
	SubmittedAt time.Time  `json:"submittedAt"`
}

// NewSubmission creates a new submission
func NewSubmission(language, code string, testCases []TestCase) *Submission {
	cases := make([]TestCase, len(testCases))
	copy(cases, testCases)
	return &Submission{
		ID:          uuid.New(),
		Language:    language,
		Code:        code,
		TestCases:   cases,
		SubmittedAt: time.Now(),
	}
}

// IsFreeRun reports whether the submission carries no test cases
func (s *Submission) IsFreeRun() bool {
	return len(s.TestCases) == 0
}
