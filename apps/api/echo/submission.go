package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akilisha/funzo/core/lesson"
	"github.com/akilisha/funzo/core/submission"
	"github.com/akilisha/funzo/core/user"
)

type submissionApi struct {
	svc       *submission.Service
	lessonSvc *lesson.Service
	userSvc   *user.Service
}

func registerSubmissionAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *submission.Service,
	lessonSvc *lesson.Service,
	userSvc *user.Service,
) {
	api := submissionApi{svc: svc, lessonSvc: lessonSvc, userSvc: userSvc}

	sg := g.Group("/submissions", jwt)

	// reviewer dashboard
	sg.GET("", api.query, privilegedMiddleware(userSvc))
	sg.GET("/metrics", api.metrics, privilegedMiddleware(userSvc))
	sg.GET("/stream", api.stream, privilegedMiddleware(userSvc))

	sg.GET("/:id", api.retrieve)
	sg.POST("/:id/review", api.review)
	sg.POST("/:id/feedback", api.requestFeedback)
}

// ReviewResponse bundles the reviewed submission with the unlock advisory
// computed from the grade, if one was given.
type ReviewResponse struct {
	Submission submission.Submission `json:"submission"`
	Advisory   *lesson.Advisory      `json:"advisory,omitempty"`
}

// Handlers

func (api *submissionApi) query(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	subs, err := api.svc.ForReview(ctx.Request().Context(), ident)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) metrics(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	subs, err := api.svc.ForReview(ctx.Request().Context(), ident)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, submission.ComputeMetrics(subs))
}

// stream pushes submission changes to the reviewer dashboard as server-sent
// events, optionally narrowed by studentId/lessonId query params. The
// connection stays open until the client goes away.
func (api *submissionApi) stream(ctx echo.Context) error {
	events, cancel := api.svc.Hub().Subscribe(submission.Filter{
		StudentID: ctx.QueryParam("studentId"),
		LessonID:  ctx.QueryParam("lessonId"),
	})
	defer cancel()

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	enc := json.NewEncoder(res)
	done := ctx.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case sub, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := res.Write([]byte("data: ")); err != nil {
				return nil
			}
			if err := enc.Encode(sub); err != nil {
				return nil
			}
			if _, err := res.Write([]byte("\n")); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	sub, err := api.svc.Get(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) review(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var data submission.ReviewInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewInput")
	}

	sub, adv, err := api.svc.Review(ctx.Request().Context(), ident, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}
	return ctx.JSON(http.StatusOK, ReviewResponse{Submission: sub, Advisory: adv})
}

// requestFeedback re-runs AI feedback generation on the caller's own
// submission.
func (api *submissionApi) requestFeedback(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	sub, err := api.svc.Get(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	l, err := api.lessonSvc.GetByID(ctx.Request().Context(), sub.LessonID)
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}

	sub, err = api.svc.RequestFeedback(ctx.Request().Context(), ident, l, sub.ID)
	if err != nil {
		return errors.Wrap(err, "generating feedback")
	}
	return ctx.JSON(http.StatusOK, sub)
}
