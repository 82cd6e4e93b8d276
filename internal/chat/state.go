// Package chat keeps per-chat conversation state for the bot: model choice,
// a bounded message history and a sliding-window rate limit. State lives in
// memory only and is lost on restart.
package chat

import (
	"sync"
	"time"

	"github.com/tv0e04k0/sk0ppbot/internal/ollama"
)

const (
	// MaxHistoryMessages caps how many user/assistant turns are replayed to
	// the model.
	MaxHistoryMessages = 12
)

// State is the conversation state of a single chat.
type State struct {
	Model   string
	History []ollama.Message

	hits []time.Time
}

// Reset clears the history and restores the given model.
func (s *State) Reset(model string) {
	s.History = nil
	s.Model = model
}

// Append records one completed exchange and trims the history to the cap.
func (s *State) Append(userText, answer string) {
	s.History = append(s.History,
		ollama.Message{Role: "user", Content: userText},
		ollama.Message{Role: "assistant", Content: answer},
	)
	s.History = trimHistory(s.History)
}

func trimHistory(history []ollama.Message) []ollama.Message {
	kept := make([]ollama.Message, 0, len(history))
	for _, m := range history {
		if m.Role == "user" || m.Role == "assistant" {
			kept = append(kept, m)
		}
	}
	if len(kept) > MaxHistoryMessages {
		kept = kept[len(kept)-MaxHistoryMessages:]
	}
	return kept
}

// BuildMessages assembles the request for the model: system prompt first,
// then the capped history, then the new user message.
func BuildMessages(state *State, systemPrompt, userText string) []ollama.Message {
	history := trimHistory(state.History)
	messages := make([]ollama.Message, 0, len(history)+2)
	messages = append(messages, ollama.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, ollama.Message{Role: "user", Content: userText})
	return messages
}

// Store hands out per-chat state. Handlers run concurrently, so access goes
// through a mutex.
type Store struct {
	mu           sync.Mutex
	states       map[int64]*State
	defaultModel string
}

func NewStore(defaultModel string) *Store {
	return &Store{
		states:       make(map[int64]*State),
		defaultModel: defaultModel,
	}
}

// Get returns the state for a chat, creating it on first sight.
func (st *Store) Get(chatID int64) *State {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.states[chatID]
	if !ok {
		s = &State{Model: st.defaultModel}
		st.states[chatID] = s
	}
	return s
}

// RateLimiter allows at most maxHits messages per chat within a sliding
// window.
type RateLimiter struct {
	window  time.Duration
	maxHits int
	now     func() time.Time
}

func NewRateLimiter(window time.Duration, maxHits int) *RateLimiter {
	return &RateLimiter{
		window:  window,
		maxHits: maxHits,
		now:     time.Now,
	}
}

// Allow records a hit and reports whether the chat is still under its limit.
// A refused message is not counted.
func (rl *RateLimiter) Allow(s *State) bool {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	kept := s.hits[:0]
	for _, t := range s.hits {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	s.hits = kept

	if len(s.hits) >= rl.maxHits {
		return false
	}
	s.hits = append(s.hits, now)
	return true
}
