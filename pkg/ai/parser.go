package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// evaluationSchema is the contract every evaluation payload must satisfy in
// full. Report aggregation assumes a total function over the four dimensions,
// so partial acceptance is not an option.
const evaluationSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["scores", "feedback", "suggestions"],
  "properties": {
    "scores": {
      "type": "object",
      "required": ["correctness", "completeness", "quality", "communication"],
      "properties": {
        "correctness": {"type": "number", "minimum": 0, "maximum": 10},
        "completeness": {"type": "number", "minimum": 0, "maximum": 10},
        "quality": {"type": "number", "minimum": 0, "maximum": 10},
        "communication": {"type": "number", "minimum": 0, "maximum": 10}
      }
    },
    "feedback": {"type": "string", "minLength": 1},
    "suggestions": {"type": "array", "items": {"type": "string"}}
  }
}`

var compiledEvaluationSchema = jsonschema.MustCompileString("evaluation.schema.json", evaluationSchema)

// ParseError reports a raw model response that could not be turned into a
// valid evaluation payload. Raw is kept for operator diagnosis and must not
// be shown to submitters.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse evaluation response: %s", e.Reason)
}

// Parse extracts and validates the structured evaluation payload from a raw
// model response. Models routinely wrap the JSON in prose or markdown fences,
// so the structured segment is located rather than assumed. The payload is
// accepted in full or rejected in full.
func Parse(raw string) (EvaluationPayload, error) {
	segment, ok := extractJSONObject(raw)
	if !ok {
		return EvaluationPayload{}, &ParseError{Reason: "no JSON object found in response", Raw: raw}
	}

	var document interface{}
	if err := json.Unmarshal([]byte(segment), &document); err != nil {
		return EvaluationPayload{}, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: raw}
	}

	if err := compiledEvaluationSchema.Validate(document); err != nil {
		return EvaluationPayload{}, &ParseError{Reason: fmt.Sprintf("schema violation: %v", err), Raw: raw}
	}

	var payload EvaluationPayload
	if err := json.Unmarshal([]byte(segment), &payload); err != nil {
		return EvaluationPayload{}, &ParseError{Reason: fmt.Sprintf("decode payload: %v", err), Raw: raw}
	}

	payload.Feedback = strings.TrimSpace(payload.Feedback)
	if payload.Feedback == "" {
		return EvaluationPayload{}, &ParseError{Reason: "feedback is empty", Raw: raw}
	}

	if payload.Suggestions == nil {
		payload.Suggestions = []string{}
	}

	return payload, nil
}

// extractJSONObject isolates the outermost JSON object inside a response that
// may carry surrounding prose or a ```json fence.
func extractJSONObject(raw string) (string, bool) {
	text := stripMarkdownFence(strings.TrimSpace(raw))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}

	return text[start : end+1], true
}

func stripMarkdownFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	if newline := strings.Index(text, "\n"); newline != -1 {
		text = text[newline+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}
