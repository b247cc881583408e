package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-dev/stockpulse/internal/contracts"
	"github.com/minjae-dev/stockpulse/internal/event"
	"github.com/minjae-dev/stockpulse/pkg/config"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

func TestNewTelegramDisabledWithoutToken(t *testing.T) {
	cfg := &config.Config{
		Telegram: config.TelegramConfig{Enabled: true, ChatID: "123"},
	}
	assert.Nil(t, NewTelegram(cfg, nil, logger.Nop()))

	cfg.Telegram.BotToken = "token"
	cfg.Telegram.Enabled = false
	assert.Nil(t, NewTelegram(cfg, nil, logger.Nop()))
}

func TestFormatResultEscapesUserVisibleText(t *testing.T) {
	result := contracts.ConsultationResult{
		Symbol:     "aapl",
		Rating:     85,
		Confidence: 9,
		Reasoning:  `Strong setup: price > MA200 & "breakout" <confirmed>`,
		Entry:      contracts.EntryStrategy{Price: "around 180", Timing: "on pullback"},
		Exit:       contracts.ExitStrategy{ProfitTarget: "195", StopLoss: "172", TimeHorizon: "4-8 weeks"},
	}

	msg := FormatResult(result)

	assert.Contains(t, msg, "<b>AAPL</b>")
	assert.Contains(t, msg, "rating 85/100")
	assert.Contains(t, msg, "&lt;confirmed&gt;")
	assert.Contains(t, msg, "&amp;")
	assert.NotContains(t, msg, "<confirmed>")
}

func TestFormatResultFailure(t *testing.T) {
	result := contracts.ConsultationResult{
		Symbol: "MSFT",
		Err:    "report generation: quote unavailable",
	}

	msg := FormatResult(result)

	assert.Contains(t, msg, "analysis failed")
	assert.Contains(t, msg, "quote unavailable")
}

func TestFormatResultHoldModeShowsAction(t *testing.T) {
	result := contracts.ConsultationResult{
		Symbol:     "NVDA",
		Rating:     60,
		Confidence: 7,
		Mode:       contracts.ModeHold,
		Action:     "sell",
		Reasoning:  "momentum fading",
	}

	msg := FormatResult(result)
	assert.Contains(t, msg, "<b>SELL</b>")
}

func TestHandleMessagePublishesCommands(t *testing.T) {
	broker := event.NewBroker(logger.Nop(), nil)
	defer broker.Stop()

	bot := &Telegram{broker: broker, logger: logger.Nop()}

	var u update
	u.Message.Text = "/analyze aapl"
	u.Message.From.Username = "trader"
	bot.handleMessage(u)

	u.Message.Text = "/analyze_hold msft 310.50"
	bot.handleMessage(u)

	// Non-commands and unknown commands are ignored.
	u.Message.Text = "hello there"
	bot.handleMessage(u)
	u.Message.Text = "/unknown thing"
	bot.handleMessage(u)

	var mu sync.Mutex
	var got []event.CommandPayload
	broker.Subscribe(event.TypeCommand, func(evt event.Event) {
		mu.Lock()
		got = append(got, evt.Payload.(event.CommandPayload))
		mu.Unlock()
	})
	broker.Start()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, "analyze", got[0].Action)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "trader", got[0].IssuedBy)
	assert.Nil(t, got[0].PurchasePrice)

	assert.Equal(t, "analyze_hold", got[1].Action)
	assert.Equal(t, "MSFT", got[1].Symbol)
	require.NotNil(t, got[1].PurchasePrice)
	assert.InDelta(t, 310.50, *got[1].PurchasePrice, 1e-9)
}
