package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/akilisha/funzo/core/booking"
	"github.com/akilisha/funzo/core/user"
)

type bookingApi struct {
	svc     *booking.Service
	userSvc *user.Service
}

func registerBookingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *booking.Service, userSvc *user.Service) {
	api := bookingApi{svc: svc, userSvc: userSvc}

	bg := g.Group("/bookings", jwt)
	bg.GET("", api.query)
	bg.POST("", api.create)
}

// Handlers

func (api *bookingApi) create(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var data booking.NewBooking
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBooking")
	}

	b, err := api.svc.Create(ctx.Request().Context(), ident, data)
	if err != nil {
		return errors.Wrap(err, "creating booking")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *bookingApi) query(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	bookings, err := api.svc.Query(ctx.Request().Context(), ident)
	if err != nil {
		return errors.Wrap(err, "querying bookings")
	}
	if bookings == nil {
		bookings = []booking.Booking{}
	}
	return ctx.JSON(http.StatusOK, bookings)
}
