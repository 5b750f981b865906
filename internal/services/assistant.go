package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"studymate-bot/internal/models"
	"studymate-bot/internal/repository"
)

// MaxMessageLength is the transport's per-message character limit.
const MaxMessageLength = 4096

// Menu entries of the main reply keyboard.
const (
	CommandSummary  = "Summary"
	CommandQuiz     = "Quiz"
	CommandTask     = "Task"
	CommandAsk      = "Ask a question"
	CommandMaterial = "Material"
	CommandStop     = "Stop"
)

const (
	msgWelcome = "Hi! I'm a bot for exam preparation.\n\n" +
		"1. Send the document (pdf, docx, txt, jpeg, png) or a YouTube link for analysis.\n" +
		"2. Use the menu below:\n" +
		"   • 'Summary' - get a brief summary and recommendations;\n" +
		"   • 'Task' - receive a task on the material;\n" +
		"   • 'Quiz' - get a quiz on the material;\n" +
		"   • 'Ask a question' - ask a question about the material;\n" +
		"   • 'Material' - instructions for uploading a document;\n" +
		"   • 'Stop' - cancel the operation."
	msgBlocked          = "Your request contains invalid words. Try reformulating it."
	msgExtracted        = "The text from the document has been successfully extracted! Now choose an action or ask a question."
	msgNoText           = "No text could be extracted from this document. Please send another file."
	msgUnsupported      = "Unsupported file format. Please send pdf, docx, txt, jpeg or png."
	msgNeedDocument     = "Please send a document for analysis first."
	msgQuizFailed       = "Error generating quiz. Please try again later."
	msgQuizOver         = "The quiz session is over. To start a new quiz, press the 'Quiz' button in the menu."
	msgAskPrompt        = "Please enter your question about the material."
	msgMaterialHelp     = "Please send the document (pdf, docx, txt, jpeg, png) or a YouTube link for analysis."
	msgStopped          = "Operation canceled."
	msgFallback         = "Please send me a document or ask a question!"
	msgGenerationFailed = "The assistant is unavailable right now. Please try again later."
	msgSummaryHeader    = "Summary and recommendations:\n"
	msgTaskHeader       = "Task on the material:\n"
)

// DocumentExtractor is the blocking text extraction step; in production it is
// the worker pool wrapping FileExtractService.
type DocumentExtractor interface {
	Extract(ctx context.Context, payload []byte, format models.DocumentFormat) (string, error)
}

// TranscriptSource resolves a video link into material text.
type TranscriptSource interface {
	TranscriptFromURL(ctx context.Context, videoURL string) (string, error)
}

// AssistantService is the transport independent control flow: moderation,
// uploads, menu commands and free-form questions.
type AssistantService struct {
	sessions  *repository.SessionRepo
	quiz      *QuizSessionService
	generator Generator
	extractor DocumentExtractor
	videos    TranscriptSource
	memory    repository.MemoryLog
	moderator *Moderator
	alerts    AlertNotifier
	log       *zap.Logger
}

func NewAssistantService(
	sessions *repository.SessionRepo,
	quiz *QuizSessionService,
	generator Generator,
	extractor DocumentExtractor,
	videos TranscriptSource,
	memory repository.MemoryLog,
	moderator *Moderator,
	alerts AlertNotifier,
	log *zap.Logger,
) *AssistantService {
	return &AssistantService{
		sessions:  sessions,
		quiz:      quiz,
		generator: generator,
		extractor: extractor,
		videos:    videos,
		memory:    memory,
		moderator: moderator,
		alerts:    alerts,
		log:       log.Named("assistant"),
	}
}

// HandleUpload extracts the document and makes it the user's material.
func (s *AssistantService) HandleUpload(ctx context.Context, upload models.Upload) models.Reply {
	format := upload.Format()
	text, err := s.extractor.Extract(ctx, upload.Payload, format)
	if err != nil {
		s.log.Warn("upload extraction failed",
			zap.Int64("user_id", upload.UserID),
			zap.String("mime_type", upload.MIMEType),
			zap.Stringer("format", format),
			zap.Error(err),
		)
		if errors.Is(err, ErrUnsupportedFormat) {
			return models.TextReply(msgUnsupported)
		}
		return models.TextReply(fmt.Sprintf("Error processing file: %v", err))
	}

	return s.setMaterial(ctx, upload.UserID, text)
}

func (s *AssistantService) setMaterial(ctx context.Context, userID int64, text string) models.Reply {
	if strings.TrimSpace(text) == "" {
		return models.TextReply(msgNoText)
	}

	s.quiz.ResetForDocument(userID, text)
	line := models.Labelled("Material", text)
	s.remember(ctx, userID, models.MemoryShort, line)
	s.remember(ctx, userID, models.MemoryLong, line)

	s.log.Info("material updated", zap.Int64("user_id", userID), zap.Int("chars", len(text)))
	return models.TextReply(msgExtracted)
}

// HandleText routes a text message: moderation first, then video links,
// menu commands, and finally a free-form question.
func (s *AssistantService) HandleText(ctx context.Context, userID int64, text string) models.Reply {
	if strings.TrimSpace(text) == "" {
		return models.TextReply(msgFallback)
	}

	if trigger, blocked := s.moderator.CheckBlocked(text); blocked {
		s.notify(ctx, models.Alert{Kind: models.AlertBlocked, UserID: userID, Trigger: trigger, Message: text})
		return models.TextReply(msgBlocked)
	}

	if link, ok := FindYouTubeLink(text); ok && s.videos != nil {
		return s.handleVideo(ctx, userID, link)
	}

	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/start":
		return models.TextReply(msgWelcome)
	case strings.ToLower(CommandSummary):
		return s.handleSummary(ctx, userID)
	case strings.ToLower(CommandTask):
		return s.handleTask(ctx, userID)
	case strings.ToLower(CommandQuiz):
		return s.serveQuiz(ctx, userID, true)
	case strings.ToLower(CommandAsk):
		return models.TextReply(msgAskPrompt)
	case strings.ToLower(CommandMaterial):
		return models.TextReply(msgMaterialHelp)
	case strings.ToLower(CommandStop):
		return models.TextReply(msgStopped)
	default:
		return s.handleQuestion(ctx, userID, text)
	}
}

// HandleNextQuiz serves the continuation of the current quiz batch.
func (s *AssistantService) HandleNextQuiz(ctx context.Context, userID int64) models.Reply {
	return s.serveQuiz(ctx, userID, false)
}

func (s *AssistantService) serveQuiz(ctx context.Context, userID int64, force bool) models.Reply {
	item, err := s.quiz.NextQuizItem(ctx, userID, force)
	switch {
	case err == nil:
		poll := item.Poll()
		return models.Reply{Poll: &poll, NextQuiz: true}
	case errors.Is(err, ErrEmptyDocument):
		return models.TextReply(msgNeedDocument)
	case errors.Is(err, ErrSessionExhausted):
		return models.TextReply(msgQuizOver)
	default:
		s.log.Warn("quiz unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return models.TextReply(msgQuizFailed)
	}
}

func (s *AssistantService) handleVideo(ctx context.Context, userID int64, link string) models.Reply {
	text, err := s.videos.TranscriptFromURL(ctx, link)
	if err != nil {
		s.log.Warn("video transcript failed", zap.Int64("user_id", userID), zap.String("url", link), zap.Error(err))
		return models.TextReply(fmt.Sprintf("Error processing video: %v", err))
	}
	return s.setMaterial(ctx, userID, text)
}

func (s *AssistantService) handleSummary(ctx context.Context, userID int64) models.Reply {
	material := s.sessions.Get(userID).DocumentText
	if material == "" {
		return models.TextReply(msgNeedDocument)
	}

	summary, err := s.generator.Generate(ctx, buildSummaryPrompt(material))
	if err != nil {
		s.log.Warn("summary generation failed", zap.Int64("user_id", userID), zap.Error(err))
		return models.TextReply(msgGenerationFailed)
	}

	s.remember(ctx, userID, models.MemoryShort, models.Labelled("Summary", summary))
	return models.TextReply(SplitMessage(msgSummaryHeader+summary, MaxMessageLength)...)
}

func (s *AssistantService) handleTask(ctx context.Context, userID int64) models.Reply {
	material := s.sessions.Get(userID).DocumentText
	if material == "" {
		return models.TextReply(msgNeedDocument)
	}

	task, err := s.generator.Generate(ctx, buildTaskPrompt(material))
	if err != nil {
		s.log.Warn("task generation failed", zap.Int64("user_id", userID), zap.Error(err))
		return models.TextReply(msgGenerationFailed)
	}

	_ = s.sessions.WithSession(userID, func(sess *models.UserSession) error {
		sess.LastTask = task
		return nil
	})
	s.remember(ctx, userID, models.MemoryShort, models.Labelled("Task", task))
	return models.TextReply(SplitMessage(msgTaskHeader+task, MaxMessageLength)...)
}

func (s *AssistantService) handleQuestion(ctx context.Context, userID int64, question string) models.Reply {
	if strings.Contains(strings.ToLower(question), "alert") {
		s.notify(ctx, models.Alert{Kind: models.AlertUser, UserID: userID, Message: question})
	}

	material := s.sessions.Get(userID).DocumentText
	answer, err := s.generator.Generate(ctx, buildAnswerPrompt(material, question))
	if err != nil {
		s.log.Warn("answer generation failed", zap.Int64("user_id", userID), zap.Error(err))
		return models.TextReply(msgGenerationFailed)
	}

	s.remember(ctx, userID, models.MemoryLong, fmt.Sprintf("Question: %s | Answer: %s", question, answer))
	return models.TextReply(SplitMessage(answer, MaxMessageLength)...)
}

// remember appends to the memory log; failures are logged only.
func (s *AssistantService) remember(ctx context.Context, userID int64, tier models.MemoryTier, line string) {
	if s.memory == nil {
		return
	}
	if err := s.memory.Append(ctx, userID, tier, line); err != nil {
		s.log.Error("memory append failed", zap.Int64("user_id", userID), zap.String("tier", string(tier)), zap.Error(err))
	}
}

// notify relays an alert to the admins; delivery failures are logged only.
func (s *AssistantService) notify(ctx context.Context, alert models.Alert) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Notify(ctx, alert); err != nil {
		s.log.Error("admin notification failed", zap.Int64("user_id", alert.UserID), zap.String("kind", alert.Kind), zap.Error(err))
	}
}

// SplitMessage cuts text into consecutive parts of at most limit characters.
func SplitMessage(text string, limit int) []string {
	if text == "" {
		return []string{""}
	}
	return lo.ChunkString(text, limit)
}
