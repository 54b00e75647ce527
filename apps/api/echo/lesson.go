package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akilisha/funzo/core/lesson"
	"github.com/akilisha/funzo/core/submission"
	"github.com/akilisha/funzo/core/user"
)

var errLessonNotFoundInCtx = errors.New("lesson object not found in echo.Context")

type lessonApi struct {
	svc     *lesson.Service
	subSvc  *submission.Service
	userSvc *user.Service
	gate    *lesson.Gate
}

func registerLessonAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *lesson.Service,
	subSvc *submission.Service,
	userSvc *user.Service,
	gate *lesson.Gate,
) {
	api := lessonApi{svc: svc, subSvc: subSvc, userSvc: userSvc, gate: gate}

	lg := g.Group("/lessons", jwt)
	lg.GET("", api.query)
	lg.GET("/branches", api.branches)

	// detail endpoints; prerequisite gating applies to everything below
	dg := lg.Group("/:id", api.gateMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("/draft", api.saveDraft)
	dg.GET("/submissions", api.querySubmissions)
	dg.POST("/submissions", api.submit)
	dg.GET("/submissions/latest", api.latestSubmission)
	dg.GET("/ratings", api.queryRatings)
	dg.POST("/ratings", api.rate)
}

// gateMiddleware loads the lesson, runs the prerequisite gate for the caller
// and stashes both the lesson and identity on the request context.
func (api *lessonApi) gateMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := getContextIdentity(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}

			l, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding lesson")
			}

			decision, err := api.gate.CanAccess(ctx.Request().Context(), ident, l)
			if err != nil {
				return errors.Wrap(err, "checking lesson access")
			}
			if !decision.Allowed {
				return echo.NewHTTPError(http.StatusForbidden, decision.Reason)
			}

			ctx.Set("lesson", l)
			return next(ctx)
		}
	}
}

func getContextLesson(ctx echo.Context) (lesson.Lesson, error) {
	if l, ok := ctx.Get("lesson").(lesson.Lesson); ok {
		return l, nil
	}
	return lesson.Lesson{}, errLessonNotFoundInCtx
}

// Handlers

func (api *lessonApi) query(ctx echo.Context) error {
	filter := new(lesson.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []lesson.Lesson{})
	}

	lessons, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) branches(ctx echo.Context) error {
	subject := lesson.Subject(ctx.QueryParam("subject"))
	branches, err := api.svc.Branches(ctx.Request().Context(), subject)
	if err != nil {
		return errors.Wrap(err, "querying branches")
	}
	return ctx.JSON(http.StatusOK, branches)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) saveDraft(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var data submission.AnswerInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnswerInput")
	}

	sub, err := api.subSvc.SaveDraft(ctx.Request().Context(), ident, l, data)
	if err != nil {
		return errors.Wrap(err, "saving draft")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *lessonApi) submit(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var data submission.AnswerInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnswerInput")
	}

	sub, err := api.subSvc.Submit(ctx.Request().Context(), ident, l, data)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// querySubmissions returns the caller's own history on the lesson; privileged
// callers see everyone's.
func (api *lessonApi) querySubmissions(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var subs []submission.Submission
	if ident.Privileged {
		subs, err = api.subSvc.ForLesson(ctx.Request().Context(), l.ID)
	} else {
		subs, err = api.subSvc.History(ctx.Request().Context(), ident, l.ID)
	}
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *lessonApi) latestSubmission(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	sub, err := api.subSvc.Latest(ctx.Request().Context(), ident, l.ID)
	if err != nil {
		return errors.Wrap(err, "finding latest submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *lessonApi) queryRatings(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	ratings, err := api.svc.Ratings(ctx.Request().Context(), l.ID)
	if err != nil {
		return errors.Wrap(err, "querying ratings")
	}
	if ratings == nil {
		ratings = []lesson.Rating{}
	}
	return ctx.JSON(http.StatusOK, ratings)
}

func (api *lessonApi) rate(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var data lesson.NewRating
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRating")
	}

	rating, err := api.svc.Rate(ctx.Request().Context(), ident, l, data)
	if err != nil {
		return errors.Wrap(err, "rating lesson")
	}
	return ctx.JSON(http.StatusCreated, rating)
}
