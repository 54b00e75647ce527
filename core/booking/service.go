package booking

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/akilisha/funzo/core/user"
)

var ErrNotFound = errors.New("booking not found")

type (
	Repository interface {
		CreateBooking(ctx context.Context, b Booking) (Booking, error)
		// QueryBookings returns a user's bookings, soonest first.
		// An empty userID returns everyone's.
		QueryBookings(ctx context.Context, userID string) ([]Booking, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ident user.Identity, nb NewBooking) (Booking, error) {
	if err := nb.Validate(); err != nil {
		return Booking{}, err
	}
	b := Booking{
		UserID:    ident.ID,
		Subject:   nb.Subject,
		Date:      nb.Date,
		Time:      nb.Time,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateBooking(ctx, b)
}

// Query returns the principal's own bookings; privileged principals see all.
func (svc *Service) Query(ctx context.Context, ident user.Identity) ([]Booking, error) {
	userID := ident.ID
	if ident.Privileged {
		userID = ""
	}
	return svc.repo.QueryBookings(ctx, userID)
}
