package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/akilisha/funzo/core/booking"
)

type bookingRepository struct {
	db *bookingTable
}

var _ booking.Repository = (*bookingRepository)(nil) // interface compliance check

func NewBookingRepository(db *DB) *bookingRepository {
	return &bookingRepository{db: db.booking}
}

func (repo *bookingRepository) CreateBooking(ctx context.Context, b booking.Booking) (booking.Booking, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	repo.db.table[b.ID] = &b
	return b, nil
}

func (repo *bookingRepository) QueryBookings(ctx context.Context, userID string) ([]booking.Booking, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	bookings := make([]booking.Booking, 0)
	for _, b := range repo.db.table {
		if userID == "" || b.UserID == userID {
			bookings = append(bookings, *b)
		}
	}
	// soonest first
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].Date != bookings[j].Date {
			return bookings[i].Date < bookings[j].Date
		}
		return bookings[i].Time < bookings[j].Time
	})
	return bookings, nil
}
