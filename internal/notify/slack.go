// Package notify posts high-edge signal summaries to a Slack webhook.
package notify

import (
	"context"
	"fmt"
	"strings"

	"sports-edge-engine/internal/config"
	"sports-edge-engine/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notifier posts signal alerts. With no webhook configured it is a no-op.
type Notifier struct {
	client     *resty.Client
	webhookURL string
	minEdgePct float64
	logger     *zap.Logger
}

// NewNotifier creates a Slack notifier from config.
func NewNotifier(cfg *config.Notify, logger *zap.Logger) *Notifier {
	return &Notifier{
		client:     resty.New(),
		webhookURL: cfg.SlackWebhookURL,
		minEdgePct: cfg.MinEdgePct,
		logger:     logger,
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// NotifySignals posts one message summarizing the pass's signals at or above
// the notify threshold. Delivery failures are logged and swallowed; alerting
// must never fail a signal pass.
func (n *Notifier) NotifySignals(ctx context.Context, signals []models.Signal) {
	if !n.Enabled() {
		return
	}

	var lines []string
	for _, s := range signals {
		if s.EdgePercent < n.minEdgePct {
			continue
		}
		line := fmt.Sprintf("game %d %s/%s @ %s %+d: edge %.2f%%, %s confidence, stake %.2f%%",
			s.GameID, s.Market, s.Selection, s.Venue, s.AmericanOdds,
			s.EdgePercent, s.Confidence, s.RecommendedStakePct*100)
		if s.Outlier {
			line += " [outlier]"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return
	}

	payload := map[string]string{
		"text": fmt.Sprintf("*%d new signal(s)*\n%s", len(lines), strings.Join(lines, "\n")),
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.webhookURL)
	if err != nil {
		n.logger.Warn("Failed to post Slack notification", zap.Error(err))
		return
	}
	if resp.IsError() {
		n.logger.Warn("Slack webhook rejected notification",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return
	}
	n.logger.Info("Posted signal notification", zap.Int("signals", len(lines)))
}
