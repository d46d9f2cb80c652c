package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for an operation notification.
type TelegramMessage struct {
	Status    OperationStatus
	Operation string
	Path      string
	Host      string
	StartTime time.Time
	Duration  time.Duration

	// Outcome summary as produced by the dispatcher.
	Summary    string
	Count      int
	OutputPath string
	FailedStep string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
