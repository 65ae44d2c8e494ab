package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
)

func TestPaginationButtons(t *testing.T) {
	translator := &mockTranslator{translations: map[string]string{
		"pagination.prev": "Prev",
		"pagination.next": "Next",
		"pagination.page": "{page} of {total}",
	}}

	tests := []struct {
		name      string
		page      int
		total     int
		wantTexts []string
		wantData  []string
	}{
		{name: "first page", page: 1, total: 3, wantTexts: []string{"1 of 3", "Next"}, wantData: []string{"admin_cards_1", "admin_cards_2"}},
		{name: "middle page", page: 2, total: 3, wantTexts: []string{"Prev", "2 of 3", "Next"}, wantData: []string{"admin_cards_1", "admin_cards_2", "admin_cards_3"}},
		{name: "last page", page: 3, total: 3, wantTexts: []string{"Prev", "3 of 3"}, wantData: []string{"admin_cards_2", "admin_cards_3"}},
		{name: "clamped", page: 9, total: 2, wantTexts: []string{"Prev", "2 of 2"}, wantData: []string{"admin_cards_1", "admin_cards_2"}},
		{name: "single page", page: 1, total: 0, wantTexts: []string{"1 of 1"}, wantData: []string{"admin_cards_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buttons := keyboard.PaginationButtons(translator, keyboard.CbAdminCards, tt.page, tt.total)
			require.Len(t, buttons, len(tt.wantTexts))

			markup, err := keyboard.NewInlineKeyboard().AddRow(buttons...).Build()
			require.NoError(t, err)

			for i, btn := range buttons {
				assert.Equal(t, tt.wantTexts[i], btn.Text)
				assert.Equal(t, tt.wantData[i], markup.InlineKeyboard[0][i].Data)
			}
		})
	}
}

func TestPaginationButtonsWithoutTranslator(t *testing.T) {
	buttons := keyboard.PaginationButtons(nil, "list", 2, 2)
	require.Len(t, buttons, 2)
	assert.Equal(t, "◀️", buttons[0].Text)
	assert.Equal(t, "2/2", buttons[1].Text)
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name       string
		page, n    int
		start, end int
	}{
		{name: "empty", page: 1, n: 0, start: 0, end: 0},
		{name: "partial first", page: 1, n: 5, start: 0, end: 5},
		{name: "second", page: 2, n: 20, start: 8, end: 16},
		{name: "tail", page: 3, n: 20, start: 16, end: 20},
		{name: "beyond", page: 7, n: 20, start: 16, end: 20},
		{name: "negative", page: -1, n: 20, start: 0, end: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := keyboard.PageBounds(tt.page, tt.n)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}

	assert.Equal(t, 1, keyboard.TotalPages(0))
	assert.Equal(t, 1, keyboard.TotalPages(keyboard.PageSize))
	assert.Equal(t, 2, keyboard.TotalPages(keyboard.PageSize+1))
}
