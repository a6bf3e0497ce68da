package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"zoiner/internal/domain"
)

const telegramAPI = "https://api.telegram.org"

type Telegram struct {
	botToken string
	chatIDs  []string
	apiURL   string
	explorer string
	client   *http.Client
}

func NewTelegram(botToken string, chatIDs []string, explorer string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatIDs:  chatIDs,
		apiURL:   telegramAPI,
		explorer: explorer,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// WithAPIURL points the client at another Bot API host.
func (t *Telegram) WithAPIURL(u string) *Telegram {
	t.apiURL = u
	return t
}

// Notify only reports launches that reached the chain step.
func (t *Telegram) Notify(ctx context.Context, o domain.Outcome) error {
	if !o.Terminal() {
		return nil
	}

	text := formatMessage(o, t.explorer)

	for _, chatID := range t.chatIDs {
		if err := t.send(ctx, chatID, text); err != nil {
			return err
		}
	}

	return nil
}

func (t *Telegram) send(ctx context.Context, chatID, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)

	body, _ := json.Marshal(map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %d", resp.StatusCode)
	}

	return nil
}

func formatMessage(o domain.Outcome, explorer string) string {
	if o.Kind == domain.OutcomeDeployFailed {
		return fmt.Sprintf(`⚠️ <b>Coin launch failed</b>

<b>Author:</b> @%s
<b>Coin:</b> %s (%s)
<b>Cast:</b> %s

<b>Reason:</b> %s`,
			html.EscapeString(o.Author.Username),
			html.EscapeString(o.Command.Name),
			html.EscapeString(o.Command.Symbol),
			o.Hash,
			html.EscapeString(o.Reason),
		)
	}

	return fmt.Sprintf(`🚀 <b>Coin launched</b>

<b>Author:</b> @%s
<b>Coin:</b> %s (%s)
<b>Contract:</b> %s
<b>Transaction:</b> %s/tx/%s
<b>Metadata:</b> %s (%s)`,
		html.EscapeString(o.Author.Username),
		html.EscapeString(o.Command.Name),
		html.EscapeString(o.Command.Symbol),
		o.Result.ContractAddress,
		explorer,
		o.Result.TransactionHash,
		html.EscapeString(o.Meta.URI),
		o.Meta.Origin,
	)
}
