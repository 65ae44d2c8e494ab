package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"
)

// Support shows the admin-configured support message.
func (s *Set) Support(c telebot.Context) error {
	t := TranslatorOf(c)

	text, err := s.Admin.SupportMessage(ContextOf(c))
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		text = t.T("support.default")
	}

	return c.Send(text, s.mainMenu(c))
}
