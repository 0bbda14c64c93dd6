package notify

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/slack-go/slack"
)

// SlackNotifier posts scan reports to Slack. The recipient is a channel ID or
// name.
type SlackNotifier struct {
	client *slack.Client
}

// NewSlackNotifier returns a SlackNotifier authenticated with token.
func NewSlackNotifier(token string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token)}
}

// Notify posts one report message to the recipient channel.
func (n *SlackNotifier) Notify(ctx context.Context, recipient string, p Payload) error {
	attachment := slack.Attachment{
		Color: reportColor(p.Summary.Violations),
		Title: p.Subject(),
		Fields: []slack.AttachmentField{
			{Title: "Items scanned", Value: strconv.Itoa(p.Summary.ItemsScanned), Short: true},
			{Title: "Violations", Value: strconv.Itoa(p.Summary.Violations), Short: true},
		},
		Footer: "docwatch scheduled scan",
		Ts:     json.Number(strconv.FormatInt(p.FiredAt.Unix(), 10)),
	}

	_, _, err := n.client.PostMessageContext(ctx, recipient, slack.MsgOptionAttachments(attachment))
	return err
}

func reportColor(violations int) string {
	if violations > 0 {
		return "#ff0000"
	}
	return "#36a64f"
}
