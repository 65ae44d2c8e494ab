package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
)

func TestInlineKeyboardBuilder(t *testing.T) {
	t.Run("build rows", func(t *testing.T) {
		markup, err := keyboard.NewInlineKeyboard().
			AddRow(
				keyboard.InlineButton{Text: "Prev", Unique: "nav", Data: "1"},
				keyboard.InlineButton{Text: "Next", Unique: "nav", Data: "2"},
			).
			AddRow(keyboard.InlineButton{Text: "Site", URL: "https://example.com"}).
			AddRow().
			Build()
		require.NoError(t, err)

		require.Len(t, markup.InlineKeyboard, 2)
		require.Len(t, markup.InlineKeyboard[0], 2)
		require.Len(t, markup.InlineKeyboard[1], 1)
		assert.Equal(t, "nav_2", markup.InlineKeyboard[0][1].Data)
		assert.Empty(t, markup.InlineKeyboard[0][1].Unique)
		assert.Equal(t, "https://example.com", markup.InlineKeyboard[1][0].URL)
		assert.Empty(t, markup.InlineKeyboard[1][0].Data)
	})

	t.Run("callback too long", func(t *testing.T) {
		_, err := keyboard.NewInlineKeyboard().
			AddRow(keyboard.InlineButton{Text: "x", Unique: "x", Data: strings.Repeat("1", keyboard.CallbackDataLimitBytes)}).
			Build()
		assert.Error(t, err)
	})

	t.Run("rows are copies", func(t *testing.T) {
		row := []keyboard.InlineButton{{Text: "a", Unique: "a"}}
		kb := keyboard.NewInlineKeyboard().AddRow(row...)
		row[0].Text = "b"
		assert.Equal(t, "a", kb.Rows()[0][0].Text)
	})
}
