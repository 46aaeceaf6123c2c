package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func validateStruct(params any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type YouTubeParams struct {
	URL string `json:"url" validate:"required,url"`
}

func (params *YouTubeParams) Validate() map[string]string {
	return validateStruct(params)
}

type GenerateParams struct {
	DocumentID string `json:"document_id" validate:"required,uuid4"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

func (params *GenerateParams) Validate() map[string]string {
	return validateStruct(params)
}

type ChatParams struct {
	Messages   []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	DocumentID string        `json:"document_id,omitempty"`
}

func (params *ChatParams) Validate() map[string]string {
	return validateStruct(params)
}

type QuizSubmitParams struct {
	DocumentID       string         `json:"document_id" validate:"required,uuid4"`
	Difficulty       string         `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Score            int            `json:"score" validate:"min=0"`
	TotalQuestions   int            `json:"total_questions" validate:"required,min=1"`
	Percentage       float64        `json:"percentage" validate:"min=0,max=100"`
	TimeTakenSeconds int            `json:"time_taken_seconds" validate:"min=0"`
	WrongAnswers     map[string]any `json:"wrong_answers,omitempty"`
}

func (params *QuizSubmitParams) Validate() map[string]string {
	return validateStruct(params)
}

type PathParams struct {
	Goal string `json:"goal" validate:"required"`
	Days int    `json:"days" validate:"required,min=1,max=90"`
}

func (params *PathParams) Validate() map[string]string {
	return validateStruct(params)
}

type UploadResponse struct {
	Status          string `json:"status"`
	DocumentID      string `json:"document_id"`
	TranscriptFound bool   `json:"transcript_found,omitempty"`
	ChunksProcessed int    `json:"chunks_processed"`
}

type SummaryResponse struct {
	DocumentID string `json:"document_id"`
	Summary    string `json:"summary,omitempty"`
	Failed     bool   `json:"failed"`
	Error      string `json:"error,omitempty"`
}

type QuizStats struct {
	TotalQuizzes   int     `json:"total_quizzes"`
	AverageScore   float64 `json:"average_score"`
	TotalStudyTime int     `json:"total_study_time"`
}

type AnalyticsResponse struct {
	Stats          QuizStats     `json:"stats"`
	RecentAttempts []QuizAttempt `json:"recent_attempts"`
}
