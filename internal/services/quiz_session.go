package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studymate-bot/internal/models"
	"studymate-bot/internal/repository"
)

var (
	ErrEmptyDocument    = errors.New("no document on file")
	ErrGenerationFailed = errors.New("quiz batch produced no usable items")
	ErrSessionExhausted = errors.New("quiz session exhausted")
)

const DefaultQuizBatchSize = 10

// QuizSessionService serves quiz items from a per-user batch, generating a
// new batch only when the session has none or the caller forces it.
//
//	NoBatch --generate--> Active --pop last--> Exhausted --next--> NoBatch
//	any state --upload--> NoBatch
type QuizSessionService struct {
	sessions    *repository.SessionRepo
	generator   Generator
	batchSize   int
	concurrency int
	log         *zap.Logger
}

func NewQuizSessionService(sessions *repository.SessionRepo, generator Generator, batchSize, concurrency int, log *zap.Logger) *QuizSessionService {
	if batchSize < 1 {
		batchSize = DefaultQuizBatchSize
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &QuizSessionService{
		sessions:    sessions,
		generator:   generator,
		batchSize:   batchSize,
		concurrency: concurrency,
		log:         log.Named("quiz"),
	}
}

// NextQuizItem returns the next item of the user's batch. It fails with
// ErrEmptyDocument, ErrGenerationFailed or ErrSessionExhausted.
func (s *QuizSessionService) NextQuizItem(ctx context.Context, userID int64, forceRegenerate bool) (models.QuizItem, error) {
	var item models.QuizItem

	err := s.sessions.WithSession(userID, func(sess *models.UserSession) error {
		if sess.DocumentText == "" {
			return ErrEmptyDocument
		}

		if forceRegenerate || sess.State() == models.QuizStateNoBatch {
			sess.ResetQuiz()
			items, report := s.generateBatch(ctx, userID, sess.DocumentText)
			sess.LastBatch = &report
			if len(items) == 0 {
				return ErrGenerationFailed
			}
			sess.QuizQueue = items
			sess.QuizSessionActive = true
		}

		if len(sess.QuizQueue) == 0 {
			// Exhausted is transient: report it once, then fall back to NoBatch.
			sess.ResetQuiz()
			return ErrSessionExhausted
		}

		item = sess.QuizQueue[0]
		sess.QuizQueue = sess.QuizQueue[1:]
		if len(sess.QuizQueue) == 0 {
			sess.QuizQueue = nil
			sess.QuizSessionActive = false
			sess.QuizExhausted = true
		}
		return nil
	})

	return item, err
}

// ResetForDocument stores freshly extracted material and drops any quiz in
// progress, regardless of its state.
func (s *QuizSessionService) ResetForDocument(userID int64, text string) {
	_ = s.sessions.WithSession(userID, func(sess *models.UserSession) error {
		sess.DocumentText = text
		sess.ResetQuiz()
		return nil
	})
}

// generateBatch requests batchSize items and keeps the ones that parse,
// preserving request order. Failures are dropped and counted in the report.
func (s *QuizSessionService) generateBatch(ctx context.Context, userID int64, material string) ([]models.QuizItem, models.BatchReport) {
	slots := make([]*models.QuizItem, s.batchSize)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range slots {
		g.Go(func() error {
			out, err := s.generator.Generate(ctx, buildQuizPrompt(material, i+1, s.batchSize))
			if err != nil {
				s.log.Warn("quiz generation call failed", zap.Int64("user_id", userID), zap.Int("slot", i), zap.Error(err))
				return nil
			}
			parsed, err := ParseQuiz(out)
			if err != nil {
				s.log.Debug("dropping unparseable quiz item", zap.Int64("user_id", userID), zap.Int("slot", i), zap.Error(err))
				return nil
			}
			slots[i] = &parsed
			return nil
		})
	}
	_ = g.Wait()

	items := make([]models.QuizItem, 0, len(slots))
	for _, it := range slots {
		if it != nil {
			items = append(items, *it)
		}
	}

	report := models.BatchReport{
		ID:          uuid.New(),
		Requested:   s.batchSize,
		Produced:    len(items),
		Dropped:     s.batchSize - len(items),
		GeneratedAt: time.Now(),
	}
	fields := []zap.Field{
		zap.Int64("user_id", userID),
		zap.String("batch_id", report.ID.String()),
		zap.Int("requested", report.Requested),
		zap.Int("produced", report.Produced),
		zap.Int("dropped", report.Dropped),
	}
	if report.Degraded() {
		s.log.Warn("quiz batch degraded", fields...)
	} else {
		s.log.Info("quiz batch generated", fields...)
	}

	return items, report
}
