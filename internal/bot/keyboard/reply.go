package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/i18n"
)

// Main menu label keys. The router matches incoming text against these in every language.
const (
	MenuDonate  = "menu.donate"
	MenuHistory = "menu.history"
	MenuProfile = "menu.profile"
	MenuSupport = "menu.support"
	MenuAdmin   = "menu.admin"
)

// MainMenu builds a localized reply keyboard for the bot main menu.
func MainMenu(t i18n.Translator, isAdmin bool) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	lookup := func(key string) string {
		if t == nil {
			return key
		}
		return t.T(key)
	}

	rows := []telebot.Row{
		markup.Row(markup.Text(lookup(MenuDonate))),
		markup.Row(markup.Text(lookup(MenuHistory)), markup.Text(lookup(MenuProfile))),
		markup.Row(markup.Text(lookup(MenuSupport))),
	}
	if isAdmin {
		rows = append(rows, markup.Row(markup.Text(lookup(MenuAdmin))))
	}

	markup.Reply(rows...)

	return markup
}
