package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"studymate-bot/internal/models"
	"studymate-bot/internal/services"
)

const (
	callbackNextQuiz = "next_quiz"
	maxDownloadBytes = 20 << 20
	pollTimeout      = 60
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Assistant handles one user request and returns what to send back.
type Assistant interface {
	HandleUpload(ctx context.Context, upload models.Upload) models.Reply
	HandleText(ctx context.Context, userID int64, text string) models.Reply
	HandleNextQuiz(ctx context.Context, userID int64) models.Reply
}

type Bot struct {
	api        API
	assistant  Assistant
	httpClient *http.Client
	log        *zap.Logger
	wg         sync.WaitGroup
}

func NewBot(api API, assistant Assistant, log *zap.Logger) *Bot {
	return &Bot{
		api:        api,
		assistant:  assistant,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log.Named("telegram"),
	}
}

// Run polls for updates until ctx is cancelled, then waits for in-flight
// handlers. Every update is handled on its own goroutine.
func (b *Bot) Run(ctx context.Context, botAPI *tgbotapi.BotAPI) {
	b.log.Info("authorised", zap.String("account", botAPI.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := botAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			b.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panic", zap.Int("update_id", update.UpdateID), zap.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch {
	case msg.Document != nil:
		b.handleFile(ctx, userID, chatID, msg.Document.FileID, msg.Document.FileName, msg.Document.MimeType, msg.Document.FileSize)
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		b.handleFile(ctx, userID, chatID, photo.FileID, "photo.jpg", models.MIMEJPEG, photo.FileSize)
	default:
		b.deliver(chatID, b.assistant.HandleText(ctx, userID, msg.Text))
	}
}

func (b *Bot) handleFile(ctx context.Context, userID, chatID int64, fileID, name, mimeType string, size int) {
	if size > maxDownloadBytes {
		b.sendText(chatID, "The file is too large. Please send a file up to 20 MB.")
		return
	}

	payload, err := b.download(ctx, fileID)
	if err != nil {
		b.log.Warn("file download failed", zap.Int64("user_id", userID), zap.String("file_id", fileID), zap.Error(err))
		b.sendText(chatID, fmt.Sprintf("Error processing file: %v", err))
		return
	}

	b.deliver(chatID, b.assistant.HandleUpload(ctx, models.Upload{
		UserID:   userID,
		ChatID:   chatID,
		FileName: name,
		MIMEType: mimeType,
		Payload:  payload,
	}))
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxDownloadBytes)
	}
	return data, nil
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Warn("answer callback failed", zap.Error(err))
	}
	if callback.Data != callbackNextQuiz || callback.From == nil || callback.Message == nil {
		return
	}
	b.deliver(callback.Message.Chat.ID, b.assistant.HandleNextQuiz(ctx, callback.From.ID))
}

func (b *Bot) deliver(chatID int64, reply models.Reply) {
	for _, part := range reply.Parts {
		b.sendText(chatID, part)
	}
	if reply.Poll != nil {
		b.sendPoll(chatID, *reply.Poll, reply.NextQuiz)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendPoll sends a quiz-type poll. When Telegram rejects it the question is
// sent as plain text instead.
func (b *Bot) sendPoll(chatID int64, poll models.Poll, withNext bool) {
	cfg := tgbotapi.NewPoll(chatID, poll.Question, poll.Options...)
	cfg.Type = "quiz"
	cfg.IsAnonymous = false
	cfg.CorrectOptionID = int64(poll.CorrectOptionIndex)
	if withNext {
		cfg.ReplyMarkup = nextQuizKeyboard()
	}

	if _, err := b.api.Send(cfg); err != nil {
		b.log.Warn("send poll failed, falling back to text", zap.Int64("chat_id", chatID), zap.Error(err))
		msg := tgbotapi.NewMessage(chatID, pollAsText(poll))
		if withNext {
			msg.ReplyMarkup = nextQuizKeyboard()
		}
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("send poll text failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func pollAsText(poll models.Poll) string {
	text := poll.Question + "\n"
	for i, opt := range poll.Options {
		text += fmt.Sprintf("\n%d. %s", i+1, opt)
	}
	return text
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(services.CommandSummary),
			tgbotapi.NewKeyboardButton(services.CommandQuiz),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(services.CommandTask),
			tgbotapi.NewKeyboardButton(services.CommandAsk),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(services.CommandMaterial),
			tgbotapi.NewKeyboardButton(services.CommandStop),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func nextQuizKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Next Quiz", callbackNextQuiz),
		),
	)
}
