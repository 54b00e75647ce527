package dummydb

import (
	"sync"

	"github.com/akilisha/funzo/core/booking"
	"github.com/akilisha/funzo/core/lesson"
	"github.com/akilisha/funzo/core/submission"
	"github.com/akilisha/funzo/core/user"
)

type (
	DB struct {
		user       *userTable
		lesson     *lessonTable
		submission *submissionTable
		booking    *bookingTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	lessonTable struct {
		sync.RWMutex
		table   map[string]*lesson.Lesson
		ratings map[string]*lesson.Rating
	}

	submissionTable struct {
		sync.RWMutex
		table map[string]*submission.Submission
	}

	bookingTable struct {
		sync.RWMutex
		table map[string]*booking.Booking
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		lesson:     &lessonTable{table: make(map[string]*lesson.Lesson), ratings: make(map[string]*lesson.Rating)},
		submission: &submissionTable{table: make(map[string]*submission.Submission)},
		booking:    &bookingTable{table: make(map[string]*booking.Booking)},
	}
	return db, nil
}
