package auth

// Scope is a filter description over an entity kind: repositories translate
// it into query predicates. Scopes are computed from the caller alone and
// never touch storage.
type Scope struct {
	// All grants unrestricted access.
	All bool
	// None denies everything; the zero Scope denies by default.
	None bool
	// InstructorID restricts to rows whose ownership chain leads to this instructor.
	InstructorID string
	// StudentID restricts to rows owned by this student.
	StudentID string
	// Enrolled further restricts a StudentID course scope to enrolled courses;
	// when false the student sees the available (non-enrolled) complement too.
	Enrolled bool
}

// Allowed reports whether the scope grants any access at all.
func (s Scope) Allowed() bool { return !s.None }

// Courses:
//   - Admin: all
//   - Instructor: own courses only
//   - Student: enrolled + available split (repositories join on enrollments)
func CourseScope(ctx Context) Scope {
	switch {
	case ctx.IsAnonymous():
		return Scope{None: true}
	case ctx.IsAdmin():
		return Scope{All: true}
	case ctx.IsInstructor():
		return Scope{InstructorID: ctx.UserID}
	case ctx.IsStudent():
		return Scope{StudentID: ctx.UserID}
	}
	return Scope{None: true}
}

// Lessons and assignments follow their parent course for instructors.
// Students may read lessons/assignments of any course, enrolled or not;
// that matches the shipped behavior and is intentionally left as-is.
func LessonScope(ctx Context) Scope {
	switch {
	case ctx.IsAnonymous():
		return Scope{None: true}
	case ctx.IsAdmin():
		return Scope{All: true}
	case ctx.IsInstructor():
		return Scope{InstructorID: ctx.UserID}
	case ctx.IsStudent():
		return Scope{All: true}
	}
	return Scope{None: true}
}

func AssignmentScope(ctx Context) Scope { return LessonScope(ctx) }

// Submissions:
//   - Admin: all
//   - Instructor: submissions whose assignment's course they own
//   - Student: own submissions only
func SubmissionScope(ctx Context) Scope {
	switch {
	case ctx.IsAnonymous():
		return Scope{None: true}
	case ctx.IsAdmin():
		return Scope{All: true}
	case ctx.IsInstructor():
		return Scope{InstructorID: ctx.UserID}
	case ctx.IsStudent():
		return Scope{StudentID: ctx.UserID}
	}
	return Scope{None: true}
}

// Users are only managed by admins.
func UserScope(ctx Context) Scope {
	if ctx.IsAdmin() {
		return Scope{All: true}
	}
	return Scope{None: true}
}
