package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/conversation"
)

// Operations of an outbox message.
const (
	OpSend        = "send"
	OpEditMarkup  = "edit_markup"
	OpClearMarkup = "clear_markup"
)

// Button is the wire form of an inline button.
type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Message is the wire form of one operation returned to the webhook caller.
type Message struct {
	Op         string     `json:"op"`
	MessageID  int64      `json:"message_id,omitempty"`
	Text       string     `json:"text,omitempty"`
	ParseMode  string     `json:"parse_mode,omitempty"`
	Buttons    [][]Button `json:"buttons,omitempty"`
	Menu       [][]string `json:"menu,omitempty"`
	RemoveMenu bool       `json:"remove_menu,omitempty"`
}

// Outbox is a Channel that records operations so the webhook caller can
// perform them on the real chat. Markup operations need the id of the
// message carrying the buttons.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
}

var _ Channel = (*Outbox)(nil)

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Send implements Channel.
func (o *Outbox) Send(_ context.Context, _ int64, p conversation.Prompt) error {
	o.append(Message{
		Op:         OpSend,
		Text:       p.Text,
		ParseMode:  p.ParseMode,
		Buttons:    wireButtons(p.Buttons),
		Menu:       p.Menu,
		RemoveMenu: p.RemoveMenu,
	})
	return nil
}

// EditMarkup implements Channel.
func (o *Outbox) EditMarkup(_ context.Context, _ int64, messageID int64, buttons [][]conversation.Button) error {
	if messageID <= 0 {
		return fmt.Errorf("edit markup: %w", ErrMessageNotFound)
	}
	o.append(Message{Op: OpEditMarkup, MessageID: messageID, Buttons: wireButtons(buttons)})
	return nil
}

// ClearMarkup implements Channel.
func (o *Outbox) ClearMarkup(_ context.Context, _ int64, messageID int64) error {
	if messageID <= 0 {
		return fmt.Errorf("clear markup: %w", ErrMessageNotFound)
	}
	o.append(Message{Op: OpClearMarkup, MessageID: messageID})
	return nil
}

// Messages returns a copy of the recorded operations.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

func (o *Outbox) append(m Message) {
	o.mu.Lock()
	o.messages = append(o.messages, m)
	o.mu.Unlock()
}

func wireButtons(rows [][]conversation.Button) [][]Button {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]Button, 0, len(rows))
	for _, row := range rows {
		r := make([]Button, 0, len(row))
		for _, b := range row {
			r = append(r, Button{Label: b.Label, Token: b.Token})
		}
		out = append(out, r)
	}
	return out
}
