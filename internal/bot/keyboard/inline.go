package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// InlineButton represents a lightweight inline keyboard button definition used by the builder.
// It is plain data so it can travel through the notification queue.
type InlineButton struct {
	Text   string `json:"text"`
	Unique string `json:"unique"` // Callback prefix that selects the handler.
	Data   string `json:"data,omitempty"`
	URL    string `json:"url,omitempty"`
}

// InlineKeyboardBuilder accumulates rows of InlineButton definitions before rendering telebot markup.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

// NewInlineKeyboard creates an empty builder.
func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{rows: make([][]InlineButton, 0)}
}

// AddRow appends a new row made of custom InlineButton definitions.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]InlineButton, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)
	return b
}

// Rows returns the accumulated button definitions.
func (b *InlineKeyboardBuilder) Rows() [][]InlineButton {
	return b.rows
}

// Build renders the rows into telebot markup, failing when a callback exceeds the size limit.
func (b *InlineKeyboardBuilder) Build() (*telebot.ReplyMarkup, error) {
	return Render(b.rows)
}

// Render converts button definitions into telebot inline markup.
func Render(rows [][]InlineButton) (*telebot.ReplyMarkup, error) {
	inlineKeyboard := make([][]telebot.InlineButton, len(rows))
	for i, row := range rows {
		inlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			if btn.URL != "" {
				inlineKeyboard[i][j] = telebot.InlineButton{Text: btn.Text, URL: btn.URL}
				continue
			}

			data, err := EncodeCallback(btn.Unique, btn.Data)
			if err != nil {
				return nil, err
			}
			// Unique stays empty: telebot would re-encode the data as "\f<unique>|<data>".
			inlineKeyboard[i][j] = telebot.InlineButton{Text: btn.Text, Data: data}
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inlineKeyboard}, nil
}
