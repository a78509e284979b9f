// Package chat holds the dashboard's local assistant log. Nothing in it is
// persisted; a log lives as long as the dashboard session that owns it.
package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/salesmake/internal/app/system/progress"
	"github.com/google/uuid"
)

// Senders.
const (
	SenderAssistant = "assistant"
	SenderUser      = "user"
)

const (
	WelcomeMessage = "Welcome to SalesMake! I am your SalesMake assistant."
	ReplyMessage   = "Thanks for your message! I'll help you with that right away."
)

// Message is one entry in the log. Progress marks entries produced by a
// progress notification rather than the conversation.
type Message struct {
	ID       string    `json:"id"`
	Sender   string    `json:"sender"`
	Text     string    `json:"text"`
	Progress bool      `json:"progress,omitempty"`
	At       time.Time `json:"at"`
}

// Log is an append-only message list safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	msgs []Message
	now  func() time.Time
}

// New returns a log seeded with the welcome message.
func New() *Log {
	l := &Log{now: func() time.Time { return time.Now().UTC() }}
	l.appendLocked(SenderAssistant, WelcomeMessage, false)
	return l
}

// Send appends text as a user message followed by the assistant reply and
// returns the two new entries. Blank input is ignored.
func (l *Log) Send(text string) []Message {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	user := l.appendLocked(SenderUser, text, false)
	reply := l.appendLocked(SenderAssistant, ReplyMessage, false)
	return []Message{user, reply}
}

// Notify appends a progress notification from the assistant.
func (l *Log) Notify(n progress.Notification) Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(SenderAssistant, n.Message, true)
}

// Messages returns a copy of the log in insertion order.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.msgs)
}

func (l *Log) appendLocked(sender, text string, isProgress bool) Message {
	m := Message{
		ID:       uuid.NewString(),
		Sender:   sender,
		Text:     text,
		Progress: isProgress,
		At:       l.now(),
	}
	l.msgs = append(l.msgs, m)
	return m
}
