package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/logger"
	"dp-normalizer/api/internal/normalize"
)

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts terminal pipeline failures to an operator chat.
type Notifier struct {
	Bot    Sender
	ChatID int64
}

func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	return bot, nil
}

// NotifyFailure sends a short report of a failed normalization. Successful
// outcomes and a nil notifier are ignored; send errors are only logged.
func (n *Notifier) NotifyFailure(ctx context.Context, sessionID string, p llm.Profile, o normalize.Outcome) {
	if n == nil || n.Bot == nil || o.OK() {
		return
	}
	msg := tgbotapi.NewMessage(n.ChatID, failureText(sessionID, p, o))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := n.Bot.Send(msg); err != nil {
		logger.FromContext(ctx).Warn("telegram alert failed", "error", err)
	}
}

func failureText(sessionID string, p llm.Profile, o normalize.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ *Normalisation échouée* (%s)\n", esc(o.Kind().String()))
	if sessionID != "" {
		fmt.Fprintf(&b, "Session: `%s`\n", strings.ReplaceAll(sessionID, "`", "'"))
	}
	fmt.Fprintf(&b, "Modèle: %s (%s)\n", esc(p.Key), esc(p.Model))
	fmt.Fprintf(&b, "Appels: %d\n", o.ModelCalls)
	if f := o.Failure; f != nil {
		if len(f.Missing) > 0 {
			fmt.Fprintf(&b, "Manquants: %s\n", esc(strings.Join(f.Missing, ", ")))
		}
		if len(f.Invalid) > 0 {
			fmt.Fprintf(&b, "Invalides: %s\n", esc(strings.Join(f.Invalid, ", ")))
		}
		if o.Kind() == normalize.TransportError && f.Err != nil {
			fmt.Fprintf(&b, "Erreur: %s\n", esc(truncate(f.Err.Error(), 300)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// esc escapes legacy Markdown.
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
