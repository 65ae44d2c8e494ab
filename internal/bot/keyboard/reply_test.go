package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
	"github.com/Proton-105/donation-bot/internal/i18n"
)

func TestMainMenu(t *testing.T) {
	translator := &mockTranslator{
		translations: map[string]string{
			keyboard.MenuDonate:  "Donate",
			keyboard.MenuHistory: "History",
			keyboard.MenuProfile: "Profile",
			keyboard.MenuSupport: "Support",
			keyboard.MenuAdmin:   "Admin",
		},
	}

	tests := []struct {
		name    string
		isAdmin bool
		want    [][]string
	}{
		{
			name: "donor",
			want: [][]string{{"Donate"}, {"History", "Profile"}, {"Support"}},
		},
		{
			name:    "admin",
			isAdmin: true,
			want:    [][]string{{"Donate"}, {"History", "Profile"}, {"Support"}, {"Admin"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup := keyboard.MainMenu(translator, tt.isAdmin)
			assert.True(t, markup.ResizeKeyboard)

			require.Len(t, markup.ReplyKeyboard, len(tt.want))
			for i, row := range tt.want {
				require.Len(t, markup.ReplyKeyboard[i], len(row))
				for j, text := range row {
					assert.Equal(t, text, markup.ReplyKeyboard[i][j].Text)
				}
			}
		})
	}
}

type mockTranslator struct {
	translations map[string]string
}

var _ i18n.Translator = (*mockTranslator)(nil)

func (m *mockTranslator) T(key string, args ...any) string {
	if value, ok := m.translations[key]; ok {
		return i18n.Format(value, args...)
	}
	return key
}

func (m *mockTranslator) Lang() string {
	return "en"
}
