package submission

import (
	"testing"

	"github.com/akilisha/funzo/core"
	"github.com/akilisha/funzo/core/lesson"
)

var (
	singleLesson = lesson.Lesson{
		ID:              "algebra-linear-equations",
		Subject:         lesson.SubjectMathematics,
		Title:           "Linear Equations",
		Question:        "Solve 3x + 7 = 22.",
		ExampleSolution: "x = 5",
	}
	structuredLesson = lesson.Lesson{
		ID:      "mechanics-motion-basics",
		Subject: lesson.SubjectPhysics,
		Title:   "Motion Basics",
		SubQuestions: []lesson.SubQuestion{
			{ID: "a", Text: "Define average velocity.", Marks: 2},
			{ID: "b", Text: "Calculate the average speed.", Marks: 3},
		},
	}
)

func TestAnswerInput_ValidateSubmit(t *testing.T) {
	tests := []struct {
		name    string
		lesson  lesson.Lesson
		input   AnswerInput
		wantErr bool
	}{
		{
			name:    "single: complete",
			lesson:  singleLesson,
			input:   AnswerInput{Single: &SingleAnswer{Answer: "x = 5", Reasoning: "Subtract 7 then divide by 3."}},
			wantErr: false,
		},
		{
			name:    "single: empty answer",
			lesson:  singleLesson,
			input:   AnswerInput{Single: &SingleAnswer{Answer: "  ", Reasoning: "Subtract 7 then divide by 3."}},
			wantErr: true,
		},
		{
			name:    "single: reasoning too short",
			lesson:  singleLesson,
			input:   AnswerInput{Single: &SingleAnswer{Answer: "x = 5", Reasoning: "easy"}},
			wantErr: true,
		},
		{
			name:    "single: reasoning exactly 10 chars",
			lesson:  singleLesson,
			input:   AnswerInput{Single: &SingleAnswer{Answer: "x = 5", Reasoning: "1234567890"}},
			wantErr: false,
		},
		{
			name:    "single: wrong shape",
			lesson:  singleLesson,
			input:   AnswerInput{Items: []AnswerItem{{QuestionID: "a", Answer: "x"}}},
			wantErr: true,
		},
		{
			name:   "structured: complete",
			lesson: structuredLesson,
			input: AnswerInput{Items: []AnswerItem{
				{QuestionID: "a", Answer: "Displacement over time.", Reasoning: "From the definition."},
				{QuestionID: "b", Answer: "8 m/s", Reasoning: "240 / 30"},
			}},
			wantErr: false,
		},
		{
			name:   "structured: missing sub-answer",
			lesson: structuredLesson,
			input: AnswerInput{Items: []AnswerItem{
				{QuestionID: "a", Answer: "Displacement over time.", Reasoning: "From the definition."},
			}},
			wantErr: true,
		},
		{
			name:   "structured: empty reasoning",
			lesson: structuredLesson,
			input: AnswerInput{Items: []AnswerItem{
				{QuestionID: "a", Answer: "Displacement over time.", Reasoning: ""},
				{QuestionID: "b", Answer: "8 m/s", Reasoning: "240 / 30"},
			}},
			wantErr: true,
		},
		{
			name:   "structured: unknown sub-question",
			lesson: structuredLesson,
			input: AnswerInput{Items: []AnswerItem{
				{QuestionID: "z", Answer: "?", Reasoning: "?"},
			}},
			wantErr: true,
		},
		{
			name:    "structured: wrong shape",
			lesson:  structuredLesson,
			input:   AnswerInput{Single: &SingleAnswer{Answer: "x", Reasoning: "some reasoning"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.ValidateSubmit(tt.lesson)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSubmit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if _, ok := err.(*core.ValidationError); !ok {
					t.Errorf("ValidateSubmit() error type = %T, want *core.ValidationError", err)
				}
			}
		})
	}
}

func TestAnswerInput_ValidateDraft(t *testing.T) {
	// drafts may hold partial content; only the shape is checked
	in := AnswerInput{Single: &SingleAnswer{Answer: "", Reasoning: ""}}
	if err := in.ValidateDraft(singleLesson); err != nil {
		t.Errorf("ValidateDraft() unexpected error = %v", err)
	}

	in = AnswerInput{Single: &SingleAnswer{}}
	if err := in.ValidateDraft(structuredLesson); err == nil {
		t.Error("ValidateDraft() expected a shape error, got nil")
	}
}

func TestAnswerInput_snapshot(t *testing.T) {
	in := AnswerInput{Items: []AnswerItem{
		{QuestionID: "b", Answer: "8 m/s", Reasoning: "240 / 30"},
		{QuestionID: "a", Answer: "Displacement over time.", Reasoning: "Definition."},
	}}

	single, structured := in.snapshot(structuredLesson)
	if single != nil {
		t.Fatal("snapshot() returned a single answer for a structured lesson")
	}
	if len(structured.Items) != 2 {
		t.Fatalf("snapshot() items = %d, want 2", len(structured.Items))
	}
	// items follow lesson order and carry the question text snapshot
	if structured.Items[0].QuestionID != "a" || structured.Items[1].QuestionID != "b" {
		t.Errorf("snapshot() order = %s,%s; want a,b", structured.Items[0].QuestionID, structured.Items[1].QuestionID)
	}
	if structured.Items[0].QuestionText != "Define average velocity." {
		t.Errorf("snapshot() question text = %q, want the lesson's text", structured.Items[0].QuestionText)
	}
}

func TestComputeMetrics(t *testing.T) {
	subs := []Submission{
		{StudentID: "s1", Status: StatusSubmitted},
		{StudentID: "s1", Status: StatusReviewed},
		{StudentID: "s2", Status: StatusSubmitted},
		{StudentID: "s3", Status: StatusDraft},
	}
	m := ComputeMetrics(subs)
	if m.TotalSubmissions != 4 {
		t.Errorf("TotalSubmissions = %d, want 4", m.TotalSubmissions)
	}
	if m.PendingReviews != 2 {
		t.Errorf("PendingReviews = %d, want 2", m.PendingReviews)
	}
	if m.ReviewedCount != 1 {
		t.Errorf("ReviewedCount = %d, want 1", m.ReviewedCount)
	}
	if m.ActiveStudents != 3 {
		t.Errorf("ActiveStudents = %d, want 3", m.ActiveStudents)
	}
}
