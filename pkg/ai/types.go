package ai

import "context"

// ScoreSet holds the four score dimensions produced by an evaluation, each on
// a 0-10 scale.
type ScoreSet struct {
	Correctness   float64 `json:"correctness"`
	Completeness  float64 `json:"completeness"`
	Quality       float64 `json:"quality"`
	Communication float64 `json:"communication"`
}

// Mean averages the four dimensions.
func (s ScoreSet) Mean() float64 {
	return (s.Correctness + s.Completeness + s.Quality + s.Communication) / 4.0
}

// Map renders the scores as a plain map for JSON column storage.
func (s ScoreSet) Map() map[string]interface{} {
	return map[string]interface{}{
		"correctness":   s.Correctness,
		"completeness":  s.Completeness,
		"quality":       s.Quality,
		"communication": s.Communication,
	}
}

// EvaluationPayload is the validated structured result extracted from a raw
// model response.
type EvaluationPayload struct {
	Scores      ScoreSet `json:"scores"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// Assessor judges an answer given its question and role context. The returned
// string is the model's raw textual response; turning it into a structured
// payload is Parse's job, not the assessor's.
type Assessor interface {
	Evaluate(ctx context.Context, role, questionText, answerText string) (string, error)
}

// Generator produces interview questions for a role.
type Generator interface {
	GenerateQuestions(ctx context.Context, role string, numQuestions int) ([]string, error)
}
