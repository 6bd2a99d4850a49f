package echoapi

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enroll"
	"github.com/darasa-lms/darasa/core/submission"
)

// courseApi is the instructor/admin course management surface. Students
// get their own read-only routes under /student.
type courseApi struct {
	jwt       *jwtAuth
	svc       course.Service
	enrollSvc enroll.Service
	subSvc    submission.Service
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	ja *jwtAuth,
	svc course.Service,
	enrollSvc enroll.Service,
	subSvc submission.Service,
) {
	api := courseApi{jwt: ja, svc: svc, enrollSvc: enrollSvc, subSvc: subSvc}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.GET("/:id/students", api.students)

	cg.GET("/:id/lessons", api.lessons)
	cg.POST("/lessons", api.addLesson)
	cg.DELETE("/lessons/:id", api.removeLesson)

	cg.GET("/:id/assignments", api.assignments)
	cg.POST("/assignments", api.addAssignment)
	cg.DELETE("/assignments/:id", api.removeAssignment)
	cg.GET("/assignments/:id/submissions", api.submissions)

	cg.PUT("/submissions/:id/grade", api.gradeSubmission)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Create(actx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}

	courses, err := api.svc.Query(actx, *filter)
	if err != nil {
		return err
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	crs, err := api.svc.Get(actx, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Update(actx, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Delete(actx, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) students(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	enrollments, err := api.enrollSvc.ByCourse(actx, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *courseApi) lessons(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	lessons, err := api.svc.Lessons(actx, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *courseApi) addLesson(ctx echo.Context) error {
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if file := formFile(ctx, "media"); file != nil {
		src, err := file.Open()
		if err != nil {
			return errors.Wrap(err, "opening media upload")
		}
		defer src.Close()
		data.MediaName = file.Filename
		data.Media = src
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}
	lsn, err := api.svc.AddLesson(actx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *courseApi) removeLesson(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.RemoveLesson(actx, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) assignments(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Assignment{})
	}

	assignments, err := api.svc.Assignments(actx, id, *filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *courseApi) addAssignment(ctx echo.Context) error {
	var data course.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if file := formFile(ctx, "media"); file != nil {
		src, err := file.Open()
		if err != nil {
			return errors.Wrap(err, "opening media upload")
		}
		defer src.Close()
		data.MediaName = file.Filename
		data.Media = src
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}
	asg, err := api.svc.AddAssignment(actx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *courseApi) removeAssignment(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.RemoveAssignment(actx, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) submissions(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}

	subs, err := api.subSvc.ByAssignment(actx, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *courseApi) gradeSubmission(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data submission.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actx, err := api.jwt.getAuthContext(ctx)
	if err != nil {
		return err
	}
	sub, err := api.subSvc.SetGrade(actx, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

// pathID parses the :id path param.
func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHTTPNotFound
	}
	return id, nil
}

// formFile returns the named multipart file, or nil when the request has
// no multipart form or the field is absent.
func formFile(ctx echo.Context, name string) *multipart.FileHeader {
	file, err := ctx.FormFile(name)
	if err != nil {
		return nil
	}
	return file
}
