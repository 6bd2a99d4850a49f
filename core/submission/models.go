package submission

import (
	"io"
	"time"

	"github.com/darasa-lms/darasa/core"
)

// Grade bounds: 4 is the best mark, 1 the worst.
const (
	MinGrade = 1
	MaxGrade = 4
)

// Submission is one attempt at an assignment. A student may submit any
// number of attempts; every attempt is a new record.
type Submission struct {
	ID           int        `json:"id"`
	AssignmentID int        `json:"assignment_id"`
	StudentID    string     `json:"student_id"`
	Content      string     `json:"content,omitempty"`
	FilePath     string     `json:"file_path,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"` // UTC
	Grade        *float64   `json:"grade,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	GradedAt     *time.Time `json:"graded_at,omitempty"` // UTC
}

func (s Submission) IsGraded() bool { return s.Grade != nil }

// NewSubmission carries a submission attempt; one of Content or File
// must be present.
type NewSubmission struct {
	AssignmentID int    `json:"assignment_id" validate:"required"`
	Content      string `json:"content"`

	// optional file upload
	FileName string    `json:"-"`
	File     io.Reader `json:"-"`
}

func (ns *NewSubmission) Validate() error {
	ns.Content = core.CleanString(ns.Content)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	if ns.Content == "" && ns.File == nil {
		return core.NewValidationError(errEmptySubmission, core.FieldError{Field: "content", Error: "either content or a file is required"})
	}
	return nil
}

// GradeSubmission carries an instructor's mark for a submission.
type GradeSubmission struct {
	Grade    float64 `json:"grade" validate:"required,gte=1,lte=4"`
	Feedback string  `json:"feedback"`
}

func (gs *GradeSubmission) Validate() error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return core.Validate.Struct(gs)
}
