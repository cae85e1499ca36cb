package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Evaluation statuses. Transitions are strictly forward: pending becomes
// completed or failed exactly once and never changes afterwards.
const (
	EvaluationStatusPending   = "pending"
	EvaluationStatusCompleted = "completed"
	EvaluationStatusFailed    = "failed"
)

// Score dimension keys stored in the scores JSON column.
const (
	ScoreCorrectness   = "correctness"
	ScoreCompleteness  = "completeness"
	ScoreQuality       = "quality"
	ScoreCommunication = "communication"
)

// Evaluation captures the outcome of assessing one answer. Scores, feedback
// and suggestions are populated together on the completed transition and stay
// empty otherwise; ErrorMessage is operator-facing only and never serialized.
type Evaluation struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	AnswerID     uint              `gorm:"uniqueIndex;not null" json:"answer_id"`
	Status       string            `gorm:"size:20;not null;default:pending;index" json:"status"`
	Scores       datatypes.JSONMap `json:"scores,omitempty"`
	Feedback     string            `gorm:"type:text" json:"feedback,omitempty"`
	Suggestions  datatypes.JSON    `json:"suggestions,omitempty"`
	ErrorMessage string            `gorm:"type:text" json:"-"`
	EvaluatedAt  *time.Time        `json:"evaluated_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsTerminal reports whether the evaluation has reached a final state.
func (e Evaluation) IsTerminal() bool {
	return e.Status == EvaluationStatusCompleted || e.Status == EvaluationStatusFailed
}

// SuggestionsSlice decodes the stored suggestions list. Returns nil when the
// evaluation carries no payload.
func (e Evaluation) SuggestionsSlice() []string {
	if len(e.Suggestions) == 0 {
		return nil
	}
	var suggestions []string
	if err := json.Unmarshal(e.Suggestions, &suggestions); err != nil {
		return nil
	}
	return suggestions
}

// ScoreValue returns one named score dimension from the scores column.
// Values written in-process are float64; values read back through the
// JSONMap scanner arrive as json.Number.
func (e Evaluation) ScoreValue(key string) float64 {
	if e.Scores == nil {
		return 0
	}
	switch value := e.Scores[key].(type) {
	case float64:
		return value
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// MeanScore averages the four score dimensions of a completed evaluation.
func (e Evaluation) MeanScore() float64 {
	return (e.ScoreValue(ScoreCorrectness) +
		e.ScoreValue(ScoreCompleteness) +
		e.ScoreValue(ScoreQuality) +
		e.ScoreValue(ScoreCommunication)) / 4.0
}
