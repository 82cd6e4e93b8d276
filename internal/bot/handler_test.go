package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"github.com/tv0e04k0/sk0ppbot/internal/botcfg"
	"github.com/tv0e04k0/sk0ppbot/internal/chat"
	"github.com/tv0e04k0/sk0ppbot/internal/ollama"
)

// MockContext stands in for a telebot update in handler tests.
type MockContext struct {
	tele.Context
	ChatID     int64
	TextVal    string
	PayloadVal string
	SentMsg    interface{}
}

func (m *MockContext) Chat() *tele.Chat {
	return &tele.Chat{ID: m.ChatID}
}
func (m *MockContext) Message() *tele.Message {
	return &tele.Message{Payload: m.PayloadVal}
}
func (m *MockContext) Text() string {
	return m.TextVal
}
func (m *MockContext) Notify(action tele.ChatAction) error {
	return nil
}
func (m *MockContext) Send(what interface{}, opts ...interface{}) error {
	m.SentMsg = what
	return nil
}

// mockChatter scripts model replies per model name.
type mockChatter struct {
	replies  map[string]string
	failing  map[string]error
	lastSent []ollama.Message
	calls    []string
}

func (m *mockChatter) Chat(_ context.Context, model string, messages []ollama.Message) (string, error) {
	m.calls = append(m.calls, model)
	m.lastSent = messages
	if err, ok := m.failing[model]; ok {
		return "", err
	}
	return m.replies[model], nil
}

func newTestBot(llm Chatter) *Bot {
	cfg := botcfg.DefaultConfig()
	cfg.Token = "123:abc"
	return &Bot{
		cfg:    cfg,
		llm:    llm,
		states: chat.NewStore(cfg.DefaultModel),
		rl:     chat.NewRateLimiter(cfg.RateWindow(), cfg.RateMaxHits),
	}
}

func TestHandleStart(t *testing.T) {
	b := newTestBot(&mockChatter{})

	state := b.states.Get(1)
	state.Model = "other"
	state.Append("q", "a")

	ctx := &MockContext{ChatID: 1}
	require.NoError(t, b.handleStart(ctx))

	msg := ctx.SentMsg.(string)
	assert.Contains(t, msg, "Модель: qwen2.5:1.5b")
	assert.Contains(t, msg, "/reset")
	assert.Empty(t, b.states.Get(1).History)
	assert.Equal(t, "qwen2.5:1.5b", b.states.Get(1).Model)
}

func TestHandleReset(t *testing.T) {
	b := newTestBot(&mockChatter{})
	b.states.Get(1).Append("q", "a")

	ctx := &MockContext{ChatID: 1}
	require.NoError(t, b.handleReset(ctx))

	assert.Equal(t, "Контекст сброшен.", ctx.SentMsg)
	assert.Empty(t, b.states.Get(1).History)
}

func TestHandleModel(t *testing.T) {
	b := newTestBot(&mockChatter{})

	t.Run("show current", func(t *testing.T) {
		ctx := &MockContext{ChatID: 1}
		require.NoError(t, b.handleModel(ctx))
		assert.Equal(t, "Текущая модель: qwen2.5:1.5b", ctx.SentMsg)
	})

	t.Run("switch", func(t *testing.T) {
		ctx := &MockContext{ChatID: 1, PayloadVal: "llama3"}
		require.NoError(t, b.handleModel(ctx))
		assert.Equal(t, "Ок. Модель: llama3", ctx.SentMsg)
		assert.Equal(t, "llama3", b.states.Get(1).Model)
	})
}

func TestHandleText(t *testing.T) {
	llm := &mockChatter{replies: map[string]string{"qwen2.5:1.5b": "ответ"}}
	b := newTestBot(llm)

	ctx := &MockContext{ChatID: 1, TextVal: "вопрос"}
	require.NoError(t, b.handleText(ctx))

	assert.Equal(t, "ответ", ctx.SentMsg)
	require.Len(t, llm.lastSent, 2)
	assert.Equal(t, "system", llm.lastSent[0].Role)
	assert.Equal(t, "вопрос", llm.lastSent[1].Content)

	history := b.states.Get(1).History
	require.Len(t, history, 2)
	assert.Equal(t, "вопрос", history[0].Content)
	assert.Equal(t, "ответ", history[1].Content)
}

func TestHandleText_EmptyMessage(t *testing.T) {
	llm := &mockChatter{}
	b := newTestBot(llm)

	ctx := &MockContext{ChatID: 1, TextVal: "   "}
	require.NoError(t, b.handleText(ctx))

	assert.Nil(t, ctx.SentMsg)
	assert.Empty(t, llm.calls)
}

func TestHandleText_Fallback(t *testing.T) {
	cfg := botcfg.DefaultConfig()
	cfg.Token = "123:abc"
	cfg.DefaultModel = "primary"
	cfg.FallbackModel = "fallback"

	llm := &mockChatter{
		replies: map[string]string{"fallback": "запасной ответ"},
		failing: map[string]error{"primary": errors.New("boom")},
	}
	b := &Bot{
		cfg:    cfg,
		llm:    llm,
		states: chat.NewStore(cfg.DefaultModel),
		rl:     chat.NewRateLimiter(cfg.RateWindow(), cfg.RateMaxHits),
	}

	ctx := &MockContext{ChatID: 1, TextVal: "вопрос"}
	require.NoError(t, b.handleText(ctx))

	assert.Equal(t, []string{"primary", "fallback"}, llm.calls)
	assert.Equal(t, "запасной ответ", ctx.SentMsg)
}

func TestHandleText_BothModelsFail(t *testing.T) {
	llm := &mockChatter{
		failing: map[string]error{"qwen2.5:1.5b": errors.New("down")},
	}
	b := newTestBot(llm)

	ctx := &MockContext{ChatID: 1, TextVal: "вопрос"}
	require.NoError(t, b.handleText(ctx))

	msg := ctx.SentMsg.(string)
	assert.True(t, strings.HasPrefix(msg, "Ошибка Ollama:"), "got: %s", msg)
	assert.Empty(t, b.states.Get(1).History, "failed exchanges are not recorded")
}

func TestHandleText_RateLimited(t *testing.T) {
	llm := &mockChatter{replies: map[string]string{"qwen2.5:1.5b": "ok"}}
	b := newTestBot(llm)

	var last *MockContext
	for i := 0; i < 5; i++ {
		last = &MockContext{ChatID: 1, TextVal: "спам"}
		require.NoError(t, b.handleText(last))
	}

	msg := last.SentMsg.(string)
	assert.Contains(t, msg, "Слишком часто")
	assert.Contains(t, msg, "10 сек")
	assert.Len(t, llm.calls, 4)
}

func TestHandleText_EmptyAnswer(t *testing.T) {
	llm := &mockChatter{replies: map[string]string{"qwen2.5:1.5b": ""}}
	b := newTestBot(llm)

	ctx := &MockContext{ChatID: 1, TextVal: "вопрос"}
	require.NoError(t, b.handleText(ctx))
	assert.Equal(t, "Пустой ответ.", ctx.SentMsg)
}

func TestHandleText_LongAnswerTruncated(t *testing.T) {
	long := strings.Repeat("я", 5000)
	llm := &mockChatter{replies: map[string]string{"qwen2.5:1.5b": long}}
	b := newTestBot(llm)

	ctx := &MockContext{ChatID: 1, TextVal: "вопрос"}
	require.NoError(t, b.handleText(ctx))

	msg := ctx.SentMsg.(string)
	assert.Equal(t, maxReplyRunes, len([]rune(msg)))
}
