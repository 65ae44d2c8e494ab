// Package notify delivers bot-initiated messages: review requests to recipients and
// decision results to donors.
package notify

import (
	"context"

	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
)

// Message is a bot-initiated message. It is plain data so it can be queued.
type Message struct {
	ChatID int64 `json:"chat_id"`
	Text   string `json:"text"`
	// PhotoID, when set, sends a photo by Telegram file id with Text as caption.
	PhotoID string                    `json:"photo_id,omitempty"`
	Buttons [][]keyboard.InlineButton `json:"buttons,omitempty"`
	HTML    bool                      `json:"html,omitempty"`
}

// Notifier sends a Message to its chat.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi sends msgs one by one and returns how many were delivered. Delivery failures
// are reported through onError and never stop the remaining messages.
func Multi(ctx context.Context, n Notifier, msgs []Message, onError func(Message, error)) int {
	delivered := 0
	for _, msg := range msgs {
		if err := n.Notify(ctx, msg); err != nil {
			if onError != nil {
				onError(msg, err)
			}
			continue
		}
		delivered++
	}
	return delivered
}
