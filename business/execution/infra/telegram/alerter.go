// Package telegram sends execution alerts to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/KPR-V/stellar/business/execution/app"
	"github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

var _ app.Publisher = (*Alerter)(nil)

// Config configures the alerter. APIEndpoint defaults to the public Bot API.
type Config struct {
	Token       string
	ChatID      int64
	APIEndpoint string
	MinProfit   asset.Amount // successes below this are not announced
}

// Alerter announces failed executions and profitable successes.
type Alerter struct {
	api       *tgbotapi.BotAPI
	chatID    int64
	minProfit asset.Amount
	log       logger.LoggerInterface
}

// New authorizes the bot token and returns an alerter.
func New(cfg Config, log logger.LoggerInterface) (*Alerter, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	log.Info(context.Background(), "telegram bot authorized", "username", api.Self.UserName)

	return &Alerter{api: api, chatID: cfg.ChatID, minProfit: cfg.MinProfit, log: log}, nil
}

// Publish sends an alert when e is worth announcing.
func (a *Alerter) Publish(ctx context.Context, e domain.Execution) error {
	if !a.shouldAlert(e) {
		return nil
	}
	msg := tgbotapi.NewMessage(a.chatID, format(e))
	msg.DisableWebPagePreview = true
	if _, err := a.api.Send(msg); err != nil {
		return apperror.External(apperror.CodePublishFailed, "telegram", err)
	}
	a.log.Debug(ctx, "telegram alert sent", "status", string(e.Status))
	return nil
}

func (a *Alerter) shouldAlert(e domain.Execution) bool {
	if !e.Status.Succeeded() {
		return true
	}
	return e.Profit >= a.minProfit
}

func format(e domain.Execution) string {
	var b strings.Builder
	if e.Status.Succeeded() {
		fmt.Fprintf(&b, "Arbitrage executed on %s\n", e.Opportunity.Pair)
	} else {
		fmt.Fprintf(&b, "Arbitrage failed on %s: %s\n", e.Opportunity.Pair, e.Status)
	}
	fmt.Fprintf(&b, "Mode: %s  Direction: %s\n", e.Mode, e.Opportunity.Direction)
	fmt.Fprintf(&b, "Deviation: %d bps\n", e.Opportunity.DeviationBps)
	if e.Status.Succeeded() {
		fmt.Fprintf(&b, "Amount: %s\nProfit: %s\nGas: %s\n", e.ExecutedAmount, e.Profit, e.GasCost)
	}
	if !e.Actor.IsZero() {
		fmt.Fprintf(&b, "Actor: %s\n", e.Actor.Short())
	}
	fmt.Fprintf(&b, "At: %s", e.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	return b.String()
}
