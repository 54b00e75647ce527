package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/booking"
	"github.com/akilisha/funzo/core/lesson"
)

type bookingRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Subject   string    `db:"subject"`
	Date      string    `db:"date"`
	Time      string    `db:"time"`
	Confirmed bool      `db:"confirmed"`
	CreatedAt null.Time `db:"created_at"`
}

func (r *bookingRow) unrow() booking.Booking {
	return booking.Booking{
		ID:        r.ID,
		UserID:    r.UserID,
		Subject:   lesson.Subject(r.Subject),
		Date:      r.Date,
		Time:      r.Time,
		Confirmed: r.Confirmed,
		CreatedAt: r.CreatedAt.Time,
	}
}

type bookingRepository struct {
	db core.DB
}

var _ booking.Repository = (*bookingRepository)(nil) // interface compliance check

func NewBookingRepository(db core.DB) *bookingRepository {
	return &bookingRepository{db: db}
}

func (repo *bookingRepository) CreateBooking(ctx context.Context, b booking.Booking) (booking.Booking, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	row := bookingRow{
		ID:        b.ID,
		UserID:    b.UserID,
		Subject:   string(b.Subject),
		Date:      b.Date,
		Time:      b.Time,
		Confirmed: b.Confirmed,
		CreatedAt: null.NewTime(b.CreatedAt.UTC(), !b.CreatedAt.IsZero()),
	}
	query := `
		INSERT INTO booking (id, user_id, subject, date, time, confirmed, created_at)
		VALUES (:id, :user_id, :subject, :date, :time, :confirmed, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, &row); err != nil {
		return booking.Booking{}, core.NewStoreUnavailableError("inserting booking", err)
	}
	return b, nil
}

func (repo *bookingRepository) QueryBookings(ctx context.Context, userID string) ([]booking.Booking, error) {
	query := `SELECT * FROM booking`
	var args []interface{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY date, time`

	var rows []bookingRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, core.NewStoreUnavailableError("querying bookings", err)
	}
	bookings := make([]booking.Booking, 0, len(rows))
	for i := range rows {
		bookings = append(bookings, rows[i].unrow())
	}
	return bookings, nil
}
