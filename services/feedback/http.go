package feedbacksvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/akilisha/funzo/core"
)

var endpoint = "/v1/completions"

// promptTmpl is the tutoring prompt sent to the hosted text-generation
// service.
var promptTmpl = template.Must(template.New("feedback").Parse(
	`You are an AI tutor providing feedback to a student on their answer to a question.

Subject: {{.Subject}}
Lesson Title: {{.LessonTitle}}

Student's Answer: {{.StudentAnswer}}
Student's Reasoning: {{.StudentReasoning}}
Correct Solution: {{.CorrectSolution}}

Provide constructive feedback to the student, highlighting areas for improvement and explaining any mistakes.
Focus on the student's reasoning and offer specific suggestions for how they can improve their understanding.
The feedback should be encouraging and helpful.

AI Feedback:`))

type (
	completionRequest struct {
		Model       string  `json:"model"`
		Prompt      string  `json:"prompt"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
	}

	completionResponse struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	httpService struct {
		client  *http.Client
		baseURL string
		key     string
		model   string
		logger  core.Logger
	}
)

var _ core.FeedbackService = (*httpService)(nil)

func NewHTTPService(logger core.Logger) *httpService {
	return &httpService{
		client:  &http.Client{Timeout: core.Conf.Feedback.Timeout},
		baseURL: core.Conf.Feedback.BaseURL,
		key:     core.Conf.Feedback.APIKey,
		model:   core.Conf.Feedback.Model,
		logger:  logger,
	}
}

func (svc *httpService) GenerateFeedback(ctx context.Context, freq core.FeedbackRequest) (string, error) {
	var prompt bytes.Buffer
	if err := promptTmpl.Execute(&prompt, freq); err != nil {
		return "", errors.Wrap(err, "rendering prompt")
	}

	body, err := json.Marshal(completionRequest{
		Model:       svc.model,
		Prompt:      prompt.String(),
		MaxTokens:   600,
		Temperature: 0.4,
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+svc.key)

	res, err := svc.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling feedback service")
	}
	defer func() { _ = res.Body.Close() }()

	var data completionResponse
	if err = json.NewDecoder(res.Body).Decode(&data); err != nil {
		return "", errors.Wrap(err, "decoding response")
	}
	if res.StatusCode >= http.StatusBadRequest {
		msg := res.Status
		if data.Error != nil {
			msg = data.Error.Message
		}
		return "", errors.Errorf("feedback service: %s", msg)
	}
	if len(data.Choices) == 0 {
		return "", errors.New("feedback service returned no content")
	}

	text := strings.TrimSpace(data.Choices[0].Text)
	if text == "" {
		return "", errors.New("feedback service returned empty feedback")
	}
	svc.logger.Debug(fmt.Sprintf("generated feedback for %q", freq.LessonTitle))
	return text, nil
}
