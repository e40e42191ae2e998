package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramOpts параметры рассылки отчёта в telegram.
type TelegramOpts struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token" validate:"required_if=Enabled true"`
	ChatID  int64  `mapstructure:"chat_id" validate:"required_if=Enabled true"`
	Message string `mapstructure:"message"`
}

// TelegramBotService отправляет выгрузки плана работ в чат.
type TelegramBotService struct {
	opts   TelegramOpts
	logger *slog.Logger
	bot    *tgbotapi.BotAPI
}

// NewTelegramBot создает экземпляр сервиса для работы с telegram ботом.
func NewTelegramBot(opts TelegramOpts, logger *slog.Logger) (*TelegramBotService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	if opts.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}

	bot, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		logger.Error("Failed to create Telegram bot", "error", err)
		return nil, fmt.Errorf("create Telegram bot: %w", err)
	}

	logger.Info("Telegram bot created successfully",
		"bot_user", bot.Self.UserName,
		"chat_id", opts.ChatID,
	)
	return &TelegramBotService{
		opts:   opts,
		logger: logger,
		bot:    bot,
	}, nil
}

// SendFile отправляет файл в чат. Подпись caption дополняет сообщение из настроек.
func (s *TelegramBotService) SendFile(ctx context.Context, path, caption string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			s.logger.Error("File not found", "path", path, "error", err)
			return fmt.Errorf("file not found at %q: %w", path, err)
		}
		s.logger.Error("Failed to access file", "path", path, "error", err)
		return fmt.Errorf("access file at %q: %w", path, err)
	}

	msg := tgbotapi.NewDocument(s.opts.ChatID, tgbotapi.FilePath(path))
	msg.Caption = joinCaption(s.opts.Message, caption)

	if _, err := s.bot.Send(msg); err != nil {
		s.logger.Error("Failed to send file",
			"path", path,
			"chat_id", s.opts.ChatID,
			"error", err)
		return fmt.Errorf("send file: %w", err)
	}

	s.logger.Info("File sent successfully",
		"path", path,
		"chat_id", s.opts.ChatID)
	return nil
}

func joinCaption(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}
