package telegram

import (
	"context"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/logger"
)

// Commands answers operator commands in the alert chat.
type Commands struct {
	Bot      *tgbotapi.BotAPI
	ChatID   int64
	Profiles *llm.Profiles
	Health   func(ctx context.Context) error
}

// Run polls updates until ctx is done.
func (c *Commands) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.Bot.GetUpdatesChan(u)
	defer c.Bot.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-updates:
			if upd.Message == nil || !upd.Message.IsCommand() {
				continue
			}
			if upd.Message.Chat.ID != c.ChatID {
				continue
			}
			text := c.Reply(ctx, upd.Message.Command())
			if _, err := c.Bot.Send(tgbotapi.NewMessage(c.ChatID, text)); err != nil {
				logger.FromContext(ctx).Warn("telegram reply failed", "error", err)
			}
		}
	}
}

func (c *Commands) Reply(ctx context.Context, cmd string) string {
	switch cmd {
	case "start":
		return "Alertes de normalisation actives.\nCommandes: /health, /models"
	case "health":
		if c.Health != nil {
			if err := c.Health(ctx); err != nil {
				return "❌ " + err.Error()
			}
		}
		return "✅ OK"
	case "models":
		if c.Profiles == nil {
			return "Aucun modèle configuré"
		}
		labels := c.Profiles.Labels()
		keys := make([]string, 0, len(labels))
		for k := range labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			mark := " "
			if k == c.Profiles.Default().Key {
				mark = "*"
			}
			b.WriteString(mark + " " + k + " — " + labels[k] + "\n")
		}
		return strings.TrimRight(b.String(), "\n")
	default:
		return "Commande inconnue"
	}
}
