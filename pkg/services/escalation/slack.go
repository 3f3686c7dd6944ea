package escalation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/qe-tools/quality-atlas/pkg/models/domain"
)

// SlackNotifier posts escalation notices to a channel. Delivery is
// best-effort: a failed post is logged, never surfaced to the caller.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  zerolog.Logger
}

func NewSlackNotifier(token, channel string, logger zerolog.Logger) (*SlackNotifier, error) {
	if token == "" || channel == "" {
		return nil, fmt.Errorf("slack token and channel are required")
	}
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
		logger:  logger,
	}, nil
}

func (n *SlackNotifier) CapaOverdue(ctx context.Context, action *domain.CapaAction) {
	text := fmt.Sprintf(":warning: CAPA %s (%s) owned by %s is overdue, due %s",
		action.CapaID, action.Title, action.Owner, action.DueDate.Format("2006-01-02"))
	n.post(ctx, text)
}

func (n *SlackNotifier) EffectivenessCheckRequired(ctx context.Context, action *domain.CapaAction) {
	text := fmt.Sprintf(":mag: CAPA %s (%s) is ready for effectiveness verification",
		action.CapaID, action.Title)
	n.post(ctx, text)
}

func (n *SlackNotifier) post(ctx context.Context, text string) {
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		n.logger.Error().Err(err).Str("channel", n.channel).Msg("failed to post escalation notice")
	}
}

// LogNotifier writes notices to the application log; the default when
// no Slack channel is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) CapaOverdue(_ context.Context, action *domain.CapaAction) {
	n.logger.Warn().
		Str("capa_id", action.CapaID).
		Str("owner", action.Owner).
		Time("due_date", action.DueDate).
		Msg("capa overdue notice")
}

func (n *LogNotifier) EffectivenessCheckRequired(_ context.Context, action *domain.CapaAction) {
	n.logger.Info().
		Str("capa_id", action.CapaID).
		Msg("effectiveness verification required")
}
