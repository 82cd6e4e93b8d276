// Package bot wires the Telegram side of sk0ppbot: commands, rate limiting
// and the relay of free text to a local Ollama model.
package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/tv0e04k0/sk0ppbot/internal/botcfg"
	"github.com/tv0e04k0/sk0ppbot/internal/chat"
	"github.com/tv0e04k0/sk0ppbot/internal/ollama"
)

const (
	maxReplyRunes = 4000
	maxErrorRunes = 600
)

// Chatter is the model backend. Satisfied by *ollama.Client.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message) (string, error)
}

type Bot struct {
	api    *tele.Bot
	cfg    *botcfg.Config
	llm    Chatter
	states *chat.Store
	rl     *chat.RateLimiter
}

func New(cfg *botcfg.Config, llm Chatter) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	api, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		api:    api,
		cfg:    cfg,
		llm:    llm,
		states: chat.NewStore(cfg.DefaultModel),
		rl:     chat.NewRateLimiter(cfg.RateWindow(), cfg.RateMaxHits),
	}
	b.register()
	return b, nil
}

// Start begins long polling and blocks until Stop.
func (b *Bot) Start() {
	log.Printf("Bot started. Ollama=%s model=%s", b.cfg.OllamaURL, b.cfg.DefaultModel)
	b.api.Start()
}

func (b *Bot) Stop() {
	b.api.Stop()
	log.Print("Bot stopped")
}

func (b *Bot) register() {
	b.api.Handle("/start", b.handleStart)
	b.api.Handle("/reset", b.handleReset)
	b.api.Handle("/model", b.handleModel)
	b.api.Handle(tele.OnText, b.handleText)
}

func (b *Bot) handleStart(c tele.Context) error {
	state := b.states.Get(c.Chat().ID)
	state.Reset(b.cfg.DefaultModel)
	return c.Send(fmt.Sprintf(
		"Готов.\nМодель: %s\nКоманды:\n/model — показать модель\n/model <name> — сменить модель\n/reset — сбросить контекст",
		state.Model,
	))
}

func (b *Bot) handleReset(c tele.Context) error {
	state := b.states.Get(c.Chat().ID)
	state.History = nil
	return c.Send("Контекст сброшен.")
}

func (b *Bot) handleModel(c tele.Context) error {
	state := b.states.Get(c.Chat().ID)

	newModel := strings.TrimSpace(c.Message().Payload)
	if newModel == "" {
		return c.Send(fmt.Sprintf("Текущая модель: %s", state.Model))
	}
	state.Model = newModel
	return c.Send(fmt.Sprintf("Ок. Модель: %s", state.Model))
}

func (b *Bot) handleText(c tele.Context) error {
	state := b.states.Get(c.Chat().ID)

	if !b.rl.Allow(state) {
		return c.Send(fmt.Sprintf("Слишком часто. Подожди %d сек.", b.cfg.RateWindowSec))
	}

	userText := strings.TrimSpace(c.Text())
	if userText == "" {
		return nil
	}

	_ = c.Notify(tele.Typing)

	ctx := context.Background()
	messages := chat.BuildMessages(state, b.cfg.SystemPrompt, userText)

	answer, err := b.llm.Chat(ctx, state.Model, messages)
	if err != nil {
		log.Printf("Primary failed model=%s err=%v; fallback=%s", state.Model, err, b.cfg.FallbackModel)
		answer, err = b.llm.Chat(ctx, b.cfg.FallbackModel, messages)
		if err != nil {
			return c.Send(fmt.Sprintf("Ошибка Ollama: %s", truncate(err.Error(), maxErrorRunes)))
		}
	}

	state.Append(userText, answer)

	if answer == "" {
		answer = "Пустой ответ."
	}
	return c.Send(truncate(answer, maxReplyRunes))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
