package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"studymate-bot/internal/models"
)

var (
	// ErrNoStructureFound means nothing in the model output looked like an object.
	ErrNoStructureFound = errors.New("no JSON object found in model output")
	// ErrMalformed means an object was found but it does not decode into a quiz item.
	ErrMalformed = errors.New("malformed quiz object")
)

const ellipsis = "..."

type rawQuiz struct {
	Question     string            `json:"question"`
	Options      []json.RawMessage `json:"options"`
	CorrectIndex *json.Number      `json:"correct_index"`
}

// ParseQuiz recovers a quiz item from model output that should be a bare JSON
// object but may be wrapped in prose. Everything from the first "{" to the
// last "}" is decoded; nothing else is attempted.
func ParseQuiz(modelOutput string) (models.QuizItem, error) {
	start := strings.Index(modelOutput, "{")
	end := strings.LastIndex(modelOutput, "}")
	if start < 0 || end <= start {
		return models.QuizItem{}, ErrNoStructureFound
	}

	dec := json.NewDecoder(strings.NewReader(modelOutput[start : end+1]))
	dec.UseNumber()

	var raw rawQuiz
	if err := dec.Decode(&raw); err != nil {
		return models.QuizItem{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw.Options) == 0 {
		return models.QuizItem{}, fmt.Errorf("%w: options missing", ErrMalformed)
	}
	if raw.CorrectIndex == nil {
		return models.QuizItem{}, fmt.Errorf("%w: correct_index missing", ErrMalformed)
	}
	idx, err := raw.CorrectIndex.Int64()
	if err != nil {
		return models.QuizItem{}, fmt.Errorf("%w: correct_index %q is not an integer", ErrMalformed, raw.CorrectIndex.String())
	}
	if idx < 0 || idx >= int64(len(raw.Options)) {
		return models.QuizItem{}, fmt.Errorf("%w: correct_index %d out of range for %d options", ErrMalformed, idx, len(raw.Options))
	}

	return models.QuizItem{
		Question: raw.Question,
		Options: lo.Map(raw.Options, func(opt json.RawMessage, _ int) string {
			return TruncateOption(optionText(opt))
		}),
		CorrectIndex: int(idx),
	}, nil
}

// optionText renders an option of any JSON type as text. Objects carrying an
// "option" field use that field.
func optionText(opt json.RawMessage) string {
	var s string
	if err := json.Unmarshal(opt, &s); err == nil {
		return s
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(opt, &obj); err == nil {
		if inner, ok := obj["option"]; ok {
			return optionText(inner)
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, opt); err == nil {
		return compact.String()
	}
	return string(opt)
}

// TruncateOption caps an option at models.MaxOptionLength characters,
// replacing the tail with an ellipsis.
func TruncateOption(s string) string {
	if utf8.RuneCountInString(s) <= models.MaxOptionLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:models.MaxOptionLength-len(ellipsis)]) + ellipsis
}
