package booking

import (
	"time"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/lesson"
)

// Booking is a scheduled tutoring session request. There is no cancellation
// or tutor-side confirmation workflow; Confirmed stays false until set
// out-of-band.
type Booking struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Subject   lesson.Subject `json:"subject"`
	Date      string         `json:"date"` // YYYY-MM-DD
	Time      string         `json:"time"` // HH:MM
	Confirmed bool           `json:"confirmed"`
	CreatedAt time.Time      `json:"created_at"`
}

type NewBooking struct {
	Subject lesson.Subject `json:"subject" validate:"required,oneof=Mathematics Physics"`
	Date    string         `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string         `json:"time" validate:"required,datetime=15:04"`
}

func (nb *NewBooking) Validate() error {
	nb.Date = core.CleanString(nb.Date)
	nb.Time = core.CleanString(nb.Time)
	return core.Validate.Struct(nb)
}
