package course

import (
	"io"
	"time"

	"github.com/darasa-lms/darasa/core"
)

type Course struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	InstructorID string    `json:"instructor_id"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

type Lesson struct {
	ID        int    `json:"id"`
	CourseID  int    `json:"course_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	MediaPath string `json:"media_path,omitempty"`
}

type Assignment struct {
	ID          int        `json:"id"`
	CourseID    int        `json:"course_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	MediaPath   string     `json:"media_path,omitempty"`
}

// NewCourse contains information needed to create a new Course. The
// instructor is always the authenticated caller, never client-provided.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return core.Validate.Struct(nc)
}

type UpdateCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (uc *UpdateCourse) Validate() error {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
	return core.Validate.Struct(uc)
}

type NewLesson struct {
	CourseID int    `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content"`

	// optional media upload
	MediaName string    `json:"-"`
	Media     io.Reader `json:"-"`
}

func (nl *NewLesson) Validate() error {
	nl.Title = core.CleanString(nl.Title)
	return core.Validate.Struct(nl)
}

type NewAssignment struct {
	CourseID    int        `json:"course_id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`

	// optional media upload
	MediaName string    `json:"-"`
	Media     io.Reader `json:"-"`
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return core.Validate.Struct(na)
}

// QueryFilter narrows course/assignment listings.
// Search does a case-insensitive match on title or description.
type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func (qf *QueryFilter) IsEmpty() bool { return qf.Search == "" }
