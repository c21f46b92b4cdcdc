package notify

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/relayhq/relay-server/internal/config"
	"github.com/relayhq/relay-server/internal/models"
	"github.com/relayhq/relay-server/pkg/logger"
)

// TelegramNotifier posts lifecycle events to an ops channel. It is optional:
// with no bot token configured New returns nil and the engine runs without
// notifications. Send failures are logged and swallowed; a flaky notifier
// must never fail a request.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func New(cfg *config.Config) (*TelegramNotifier, error) {
	if cfg.TelegramBotToken == "" {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, err
	}

	logger.Info("Telegram notifier enabled", "account", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: cfg.TelegramChatID}, nil
}

func (n *TelegramNotifier) RequestCreated(request *models.Request) {
	go n.send("New " + request.RequestType + " request " + request.ID + " (" + request.TimeCommitment + ")")
}

func (n *TelegramNotifier) ResponseSubmitted(request *models.Request, response *models.Response) {
	go n.send("Request " + request.ID + " got a " + response.ResponseType + " response")
}

func (n *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		logger.Warn("Failed to send notification", "error", err)
	}
}
