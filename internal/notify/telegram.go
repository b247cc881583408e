package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minjae-dev/stockpulse/internal/contracts"
	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// Telegram is the chat-bot collaborator: outbound result notifications and
// the inbound command poller that feeds the broker. It is the system's only
// command-and-control surface.
type Telegram struct {
	botToken     string
	chatID       string
	pollInterval time.Duration
	client       *http.Client
	broker       *event.Broker
	logger       *logger.Logger
	stopCh       chan struct{}
	offset       int64
}

// NewTelegram wires the bot. Returns nil when the bot is not configured;
// callers treat a nil notifier as disabled.
func NewTelegram(cfg *config.Config, broker *event.Broker, log *logger.Logger) *Telegram {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		return nil
	}

	return &Telegram{
		botToken:     cfg.Telegram.BotToken,
		chatID:       cfg.Telegram.ChatID,
		pollInterval: cfg.Telegram.PollInterval,
		client:       &http.Client{Timeout: 35 * time.Second},
		broker:       broker,
		logger:       log.WithComponent("telegram"),
		stopCh:       make(chan struct{}),
	}
}

// Send posts an HTML message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram error %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}

// FormatResult renders a consultation result as an HTML notification.
// Dynamic fields are escaped; tags come only from the template.
func FormatResult(result contracts.ConsultationResult) string {
	var sb strings.Builder

	if result.Failed() {
		fmt.Fprintf(&sb, "<b>%s</b> analysis failed\n<i>%s</i>",
			html.EscapeString(strings.ToUpper(result.Symbol)),
			html.EscapeString(result.Err))
		return sb.String()
	}

	fmt.Fprintf(&sb, "<b>%s</b>: rating %.0f/100, confidence %d/10\n\n",
		html.EscapeString(strings.ToUpper(result.Symbol)), result.Rating, result.Confidence)

	if result.Mode == contracts.ModeHold && result.Action != "" {
		fmt.Fprintf(&sb, "Recommended action: <b>%s</b>\n\n", html.EscapeString(strings.ToUpper(result.Action)))
	}

	fmt.Fprintf(&sb, "%s\n", html.EscapeString(result.Reasoning))

	if result.Entry.Price != "" {
		fmt.Fprintf(&sb, "\nEntry: %s (%s)", html.EscapeString(result.Entry.Price), html.EscapeString(result.Entry.Timing))
	}
	if result.Exit.ProfitTarget != "" {
		fmt.Fprintf(&sb, "\nTarget: %s", html.EscapeString(result.Exit.ProfitTarget))
	}
	if result.Exit.StopLoss != "" {
		fmt.Fprintf(&sb, "\nStop: %s", html.EscapeString(result.Exit.StopLoss))
	}
	if result.Exit.TimeHorizon != "" {
		fmt.Fprintf(&sb, "\nHorizon: %s", html.EscapeString(result.Exit.TimeHorizon))
	}

	return sb.String()
}

// StartPolling runs the getUpdates loop until Stop or context cancel.
// Recognized commands are published as command events on the broker.
func (t *Telegram) StartPolling(ctx context.Context) {
	t.logger.Info("Starting Telegram command poller")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Telegram poller stopped (context cancelled)")
			return
		case <-t.stopCh:
			t.logger.Info("Telegram poller stopped")
			return
		case <-time.After(t.pollInterval):
			if err := t.pollOnce(ctx); err != nil {
				t.logger.WithError(err).Warn("Telegram poll failed")
			}
		}
	}
}

// Stop halts the polling loop.
func (t *Telegram) Stop() {
	close(t.stopCh)
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		From struct {
			Username string `json:"username"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

func (t *Telegram) pollOnce(ctx context.Context) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates?offset=%d&timeout=25", t.botToken, t.offset+1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("get updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("getUpdates status: %s", resp.Status)
	}

	var payload struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode updates: %w", err)
	}
	if !payload.OK {
		return fmt.Errorf("getUpdates returned ok=false")
	}

	for _, u := range payload.Result {
		if u.UpdateID > t.offset {
			t.offset = u.UpdateID
		}
		t.handleMessage(u)
	}

	return nil
}

// handleMessage parses "/analyze {symbol}" and "/analyze_hold {symbol}
// {price}" and publishes the command event.
func (t *Telegram) handleMessage(u update) {
	text := strings.TrimSpace(u.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	fields := strings.Fields(text)
	command := strings.ToLower(fields[0])
	issuedBy := u.Message.From.Username
	if issuedBy == "" {
		issuedBy = strconv.FormatInt(u.Message.Chat.ID, 10)
	}

	switch command {
	case "/analyze":
		if len(fields) < 2 {
			t.replyUsage("usage: /analyze SYMBOL")
			return
		}
		t.broker.Publish(event.TypeCommand, event.CommandPayload{
			Action:   "analyze",
			Symbol:   strings.ToUpper(fields[1]),
			IssuedBy: issuedBy,
		})

	case "/analyze_hold":
		if len(fields) < 3 {
			t.replyUsage("usage: /analyze_hold SYMBOL PRICE")
			return
		}
		price, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || price <= 0 {
			t.replyUsage("usage: /analyze_hold SYMBOL PRICE (price must be a positive number)")
			return
		}
		t.broker.Publish(event.TypeCommand, event.CommandPayload{
			Action:        "analyze_hold",
			Symbol:        strings.ToUpper(fields[1]),
			PurchasePrice: &price,
			IssuedBy:      issuedBy,
		})

	default:
		t.logger.WithField("command", command).Debug("Ignoring unknown command")
	}
}

func (t *Telegram) replyUsage(usage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.Send(ctx, html.EscapeString(usage)); err != nil {
		t.logger.WithError(err).Warn("Usage reply failed")
	}
}
