package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"

	"ylabs/internal/common"
	"ylabs/internal/domain/application"
	"ylabs/internal/domain/listing"
)

const customQuestionsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"question": {"type": "string", "minLength": 1},
			"answer": {"type": "string"}
		},
		"required": ["question", "answer"]
	}
}`

var answersSchema = mustSchema(customQuestionsSchema)

func mustSchema(raw string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(raw), rs); err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return rs
}

func errInvalidQuestions() error {
	return common.NewValidationError("Invalid custom questions format", nil)
}

// parseCustomQuestions decodes the JSON encoded answers sent with an
// application form. An empty value means no answers.
func parseCustomQuestions(ctx context.Context, raw string) ([]application.Answer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []application.Answer{}, nil
	}
	keyErrs, err := answersSchema.ValidateBytes(ctx, []byte(raw))
	if err != nil || len(keyErrs) > 0 {
		return nil, errInvalidQuestions()
	}
	var answers []application.Answer
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, errInvalidQuestions()
	}
	return answers, nil
}

// requireAnswers checks that every required listing question got a
// non-blank answer.
func requireAnswers(questions []listing.Question, answers []application.Answer) error {
	given := make(map[string]string, len(answers))
	for _, a := range answers {
		given[strings.TrimSpace(a.Question)] = strings.TrimSpace(a.Answer)
	}
	fields := map[string]string{}
	for i, q := range questions {
		if !q.Required {
			continue
		}
		if given[strings.TrimSpace(q.Question)] == "" {
			fields[fmt.Sprintf("customQuestions[%d]", i)] = "answer required: " + q.Question
		}
	}
	if len(fields) > 0 {
		return common.NewValidationError("Missing answers to required questions", fields)
	}
	return nil
}
