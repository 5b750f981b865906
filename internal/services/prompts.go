package services

import (
	"fmt"
	"strings"

	"studymate-bot/internal/models"
)

const (
	ocrPrompt        = "Transcribe all text visible in this image exactly as written. Return plain text only, without commentary."
	transcribePrompt = "Transcribe the provided audio verbatim. Return plain text only, without markdown, headers, or explanations."
)

func buildSummaryPrompt(material string) string {
	var b strings.Builder
	b.WriteString("You are an experienced tutor helping a student prepare for an exam.\n\n")
	b.WriteString("Write a concise study summary of the material below, then recommend additional resources for deeper study.\n\n")
	writeMaterial(&b, material)
	return b.String()
}

func buildTaskPrompt(material string) string {
	var b strings.Builder
	b.WriteString("You are an experienced tutor helping a student prepare for an exam.\n\n")
	b.WriteString("Create one practice task based on the material below. Return the task in a clear and brief format.\n\n")
	writeMaterial(&b, material)
	return b.String()
}

// buildQuizPrompt asks for a single question, numbered slot of total.
func buildQuizPrompt(material string, slot, total int) string {
	var b strings.Builder
	b.WriteString("You are an expert educational assessor. Create one multiple-choice quiz question with 4 answer options based on the material below.\n")
	b.WriteString(fmt.Sprintf("This is question %d of %d in a set; cover a different part of the material than the other questions.\n\n", slot, total))
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n")
	b.WriteString(fmt.Sprintf("Every option must be shorter than %d characters.\n\n", models.MaxOptionLength))
	b.WriteString(`JSON schema:
{"question": "string", "options": ["option1", "option2", "option3", "option4"], "correct_index": 0}

`)
	writeMaterial(&b, material)
	return b.String()
}

func buildAnswerPrompt(material, question string) string {
	var b strings.Builder
	if material != "" {
		b.WriteString("Context: ")
		b.WriteString(material)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

func writeMaterial(b *strings.Builder, material string) {
	b.WriteString("---MATERIAL START---\n")
	b.WriteString(material)
	b.WriteString("\n---MATERIAL END---\n")
}
