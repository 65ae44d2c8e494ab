package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"
)

const historyDateLayout = "2006-01-02 15:04"

// History lists the sender's latest transactions.
func (s *Set) History(c telebot.Context) error {
	t := TranslatorOf(c)

	txs, err := s.Transactions.History(ContextOf(c), senderID(c), s.HistoryLimit)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		return c.Send(t.T("history.empty"), s.mainMenu(c))
	}

	lines := make([]string, 0, len(txs)+1)
	lines = append(lines, t.T("history.title"))
	for _, tx := range txs {
		lines = append(lines, t.T("history.item",
			"id", tx.ID,
			"amount", tx.FormatAmount(),
			"status", t.T("status."+string(tx.Status)),
			"date", tx.CreatedAt.UTC().Format(historyDateLayout),
		))
	}

	return c.Send(strings.Join(lines, "\n"), s.mainMenu(c))
}
