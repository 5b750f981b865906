package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		want DocumentFormat
	}{
		{"application/pdf", FormatPDF},
		{MIMEDOCX, FormatDOCX},
		{"text/plain; charset=utf-8", FormatPlainText},
		{"IMAGE/JPEG", FormatImage},
		{"image/png", FormatImage},
		{"image/gif", FormatUnknown},
		{"", FormatUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.mime, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatFromMIME(tc.mime))
		})
	}
}

func TestUploadFormat_FallsBackToFileName(t *testing.T) {
	u := Upload{MIMEType: "application/octet-stream", FileName: "Lecture-3.PDF"}
	assert.Equal(t, FormatPDF, u.Format())

	u = Upload{MIMEType: "application/zip", FileName: "archive.zip"}
	assert.Equal(t, FormatUnknown, u.Format())
}

func TestUserSession_State(t *testing.T) {
	s := &UserSession{}
	assert.Equal(t, QuizStateNoBatch, s.State())

	s.QuizQueue = []QuizItem{{Question: "q", Options: []string{"a"}}}
	s.QuizSessionActive = true
	assert.Equal(t, QuizStateActive, s.State())

	s.QuizQueue = nil
	s.QuizSessionActive = false
	s.QuizExhausted = true
	assert.Equal(t, QuizStateExhausted, s.State())

	s.ResetQuiz()
	assert.Equal(t, QuizStateNoBatch, s.State())
}

func TestUserSession_CloneIsDeep(t *testing.T) {
	s := &UserSession{QuizQueue: []QuizItem{{Question: "q", Options: []string{"a", "b"}}}}
	c := s.Clone()
	c.QuizQueue[0].Options[0] = "changed"
	c.QuizQueue = append(c.QuizQueue, QuizItem{})

	assert.Equal(t, "a", s.QuizQueue[0].Options[0])
	assert.Len(t, s.QuizQueue, 1)
}
