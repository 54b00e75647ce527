package lesson

import (
	"testing"
)

func TestLesson_Validate(t *testing.T) {
	subQs := []SubQuestion{
		{ID: "a", Text: "Define velocity.", Marks: 2},
		{ID: "b", Text: "Compute the speed.", Marks: 3},
	}

	tests := []struct {
		name    string
		lesson  Lesson
		wantErr bool
	}{
		{
			name:    "single question form",
			lesson:  Lesson{ID: "l1", Subject: SubjectMathematics, Title: "T", Question: "Solve x.", ExampleSolution: "x = 1"},
			wantErr: false,
		},
		{
			name:    "structured form",
			lesson:  Lesson{ID: "l2", Subject: SubjectPhysics, Title: "T", SubQuestions: subQs},
			wantErr: false,
		},
		{
			name:    "both forms",
			lesson:  Lesson{ID: "l3", Subject: SubjectPhysics, Title: "T", Question: "Q?", SubQuestions: subQs},
			wantErr: true,
		},
		{
			name:    "neither form",
			lesson:  Lesson{ID: "l4", Subject: SubjectMathematics, Title: "T"},
			wantErr: true,
		},
		{
			name:    "invalid subject",
			lesson:  Lesson{ID: "l5", Subject: "Chemistry", Title: "T", Question: "Q?"},
			wantErr: true,
		},
		{
			name: "duplicate sub-question IDs",
			lesson: Lesson{ID: "l6", Subject: SubjectPhysics, Title: "T", SubQuestions: []SubQuestion{
				{ID: "a", Text: "One."},
				{ID: "a", Text: "Two."},
			}},
			wantErr: true,
		},
		{
			name: "empty sub-question ID",
			lesson: Lesson{ID: "l7", Subject: SubjectPhysics, Title: "T", SubQuestions: []SubQuestion{
				{ID: "", Text: "One."},
			}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.lesson.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckUnlock(t *testing.T) {
	tests := []struct {
		name       string
		grade      float64
		wantUnlock bool
	}{
		{name: "well above threshold", grade: 90, wantUnlock: true},
		{name: "exactly at threshold", grade: 75, wantUnlock: true},
		{name: "just below threshold", grade: 74.9, wantUnlock: false},
		{name: "zero", grade: 0, wantUnlock: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := CheckUnlock(tt.grade)
			if adv.UnlockNextLesson != tt.wantUnlock {
				t.Errorf("CheckUnlock(%v).UnlockNextLesson = %v, want %v", tt.grade, adv.UnlockNextLesson, tt.wantUnlock)
			}
			if adv.Message == "" {
				t.Error("CheckUnlock() returned an empty message")
			}
		})
	}
}
