package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// Notifier posts staking events to a Telegram chat through the Bot API.
type Notifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	enabled    bool
	baseURL    string // sendMessage endpoint override for tests
}

// NewNotifier creates a Notifier. It only sends when both botToken and
// chatID are set.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		enabled:    botToken != "" && chatID != "",
	}
}

func (n *Notifier) Enabled() bool { return n.enabled }

// field is one "Label: value" line of an event message.
type field struct {
	label string
	value string
	code  bool
}

// eventMessage renders a bold title followed by escaped fields.
func eventMessage(title string, fields ...field) string {
	var b strings.Builder
	b.WriteString("<b>" + html.EscapeString(title) + "</b>")
	for _, f := range fields {
		v := html.EscapeString(f.value)
		if f.code {
			v = "<code>" + v + "</code>"
		}
		fmt.Fprintf(&b, "\n%s: %s", f.label, v)
	}
	return b.String()
}

func amountField(label, amount, symbol string) field {
	return field{label: label, value: strings.TrimSpace(amount + " " + symbol)}
}

// Send posts pre-rendered HTML to the chat.
func (n *Notifier) Send(ctx context.Context, msg string) error {
	return n.send(ctx, msg, false)
}

func (n *Notifier) send(ctx context.Context, msg string, silent bool) error {
	if !n.enabled {
		return nil
	}

	endpoint := n.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/bot%s/sendMessage", telegramAPI, n.botToken)
	}
	form := url.Values{
		"chat_id":                  {n.chatID},
		"text":                     {msg},
		"parse_mode":               {"HTML"},
		"disable_web_page_preview": {"true"},
	}
	if silent {
		form.Set("disable_notification", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: telegram %d: %s", resp.StatusCode, body.Description)
	}
	if decodeErr != nil {
		return fmt.Errorf("notify: decode response: %w", decodeErr)
	}
	if !body.OK {
		return fmt.Errorf("notify: telegram rejected message: %s", body.Description)
	}
	return nil
}

// NotifyMint announces a new position.
func (n *Notifier) NotifyMint(ctx context.Context, nftID uint64, owner, seed, symbol string) error {
	return n.send(ctx, eventMessage("Mint",
		field{label: "NFT", value: fmt.Sprint(nftID), code: true},
		field{label: "Owner", value: owner, code: true},
		amountField("Seed", seed, symbol),
	), false)
}

// NotifyClaim reports one strategy's restaked payout. Claims arrive per
// strategy, so they are delivered silently.
func (n *Notifier) NotifyClaim(ctx context.Context, nftID uint64, strategy, amount, symbol string) error {
	return n.send(ctx, eventMessage("Claim",
		field{label: "NFT", value: fmt.Sprint(nftID), code: true},
		field{label: "Strategy", value: strategy},
		amountField("Restaked", amount, symbol),
	), true)
}

func (n *Notifier) NotifyDestroy(ctx context.Context, nftID uint64, refund, symbol string) error {
	return n.send(ctx, eventMessage("Destroyed",
		field{label: "NFT", value: fmt.Sprint(nftID), code: true},
		amountField("Refund", refund, symbol),
	), false)
}

// NotifyMonthReport sends the rendered month rollover report as is.
func (n *Notifier) NotifyMonthReport(ctx context.Context, textHTML string) error {
	return n.Send(ctx, textHTML)
}
