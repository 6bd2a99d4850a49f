package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enroll"
	"github.com/darasa-lms/darasa/core/submission"
)

// studentApi is the student portal: enrollment, course material and
// submissions for the authenticated student.
type studentApi struct {
	jwt       *jwtAuth
	courseSvc course.Service
	enrollSvc enroll.Service
	subSvc    submission.Service
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	ja *jwtAuth,
	courseSvc course.Service,
	enrollSvc enroll.Service,
	subSvc submission.Service,
) {
	api := studentApi{jwt: ja, courseSvc: courseSvc, enrollSvc: enrollSvc, subSvc: subSvc}

	sg := g.Group("/student", jwt)
	sg.GET("/courses/enrolled", api.enrolledCourses)
	sg.GET("/courses/available", api.availableCourses)
	sg.POST("/courses/:id/enroll", api.enroll)
	sg.DELETE("/courses/:id/enroll", api.unenroll)
	sg.GET("/courses/:id/grades", api.grades)
	sg.GET("/enrollments", api.enrollments)

	sg.POST("/assignments/:id/submissions", api.submit)
	sg.GET("/assignments/:id/submissions", api.mySubmissions)
}

func (api *studentApi) enrolledCourses(ctx echo.Context) error {
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}

	courses, err := api.courseSvc.Enrolled(actx, *filter)
	if err != nil {
		return err
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *studentApi) availableCourses(ctx echo.Context) error {
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	courses, err := api.courseSvc.Available(actx)
	if err != nil {
		return err
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

// enroll is idempotent: re-enrolling in the same course returns the
// existing enrollment.
func (api *studentApi) enroll(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	enr, err := api.enrollSvc.Enroll(actx, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

// unenroll is idempotent: leaving a course never enrolled in succeeds.
func (api *studentApi) unenroll(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	if err := api.enrollSvc.Unenroll(actx, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) enrollments(ctx echo.Context) error {
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	enrollments, err := api.enrollSvc.ByStudent(actx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *studentApi) grades(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	subs, err := api.subSvc.Grades(actx, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *studentApi) submit(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data submission.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	data.AssignmentID = id
	if file := formFile(ctx, "file"); file != nil {
		src, err := file.Open()
		if err != nil {
			return errors.Wrap(err, "opening file upload")
		}
		defer src.Close()
		data.FileName = file.Filename
		data.File = src
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}
	sub, err := api.subSvc.Submit(actx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *studentApi) mySubmissions(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	subs, err := api.subSvc.Mine(actx, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subs)
}
