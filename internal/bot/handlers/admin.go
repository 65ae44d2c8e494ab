package handlers

import (
	"errors"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/admin"
	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/i18n"
	"github.com/Proton-105/donation-bot/internal/store"
)

// AdminOnly rejects everyone but the configured admin before h runs.
func (s *Set) AdminOnly(h Handler) Handler {
	return func(c telebot.Context) error {
		if s.Admin == nil || !s.Admin.IsAdmin(senderID(c)) {
			return answer(c, TranslatorOf(c).T("admin.not_admin"), true)
		}
		return h(c)
	}
}

// Panel opens the admin panel.
func (s *Set) Panel(c telebot.Context) error {
	_ = answer(c, "", false)
	t := TranslatorOf(c)
	return reply(c, t.T("admin.panel"), s.Keyboards.AdminPanel(t))
}

// Stats shows donation totals.
func (s *Set) Stats(c telebot.Context) error {
	_ = answer(c, "", false)
	t := TranslatorOf(c)

	stats, err := s.Admin.Stats(ContextOf(c), senderID(c))
	if err != nil {
		return err
	}
	return reply(c, statsText(t, stats), s.Keyboards.BackToPanel(t))
}

func statsText(t i18n.Translator, stats *domain.Stats) string {
	lines := make([]string, 0, len(domain.SupportedCurrencies))
	for _, c := range domain.SupportedCurrencies {
		amount, ok := stats.RaisedByCurrency[c]
		if !ok {
			continue
		}
		lines = append(lines, t.T("admin.stats_currency", "currency", c.Label(), "amount", domain.FormatMoney(amount, c)))
	}

	return t.T("admin.stats",
		"total", stats.TotalRaised.StringFixed(2),
		"by_currency", strings.Join(lines, "\n"),
		"pending", stats.PendingReviews,
		"donors", stats.TotalDonors,
	)
}

// SetCard starts the add-card draft from the panel or from /setcard [details].
func (s *Set) SetCard(c telebot.Context) error {
	_ = answer(c, "", false)

	details := ""
	if c.Callback() == nil {
		if msg := c.Message(); msg != nil {
			details = msg.Payload
		}
	}

	out, err := s.Admin.BeginAddCard(ContextOf(c), senderID(c), details)
	if err != nil {
		return err
	}
	return s.renderAdmin(c, out)
}

// CardDetails handles the card text typed during the draft.
func (s *Set) CardDetails(c telebot.Context) error {
	out, err := s.Admin.SubmitCardDetails(ContextOf(c), senderID(c), c.Text())
	if err != nil {
		return err
	}
	return s.renderAdmin(c, out)
}

// CardCurrency handles admin_currency_<CCY>.
func (s *Set) CardCurrency(c telebot.Context) error {
	_ = answer(c, "", false)

	out, err := s.Admin.ChooseCardCurrency(ContextOf(c), senderID(c), callbackPayload(c, keyboard.CbAdminCardCurrency))
	if err != nil {
		return err
	}
	return s.renderAdmin(c, out)
}

// ConfirmCard handles confirm_setcard.
func (s *Set) ConfirmCard(c telebot.Context) error {
	_ = answer(c, "", false)

	out, err := s.Admin.ConfirmCard(ContextOf(c), senderID(c))
	if err != nil {
		return err
	}
	return s.renderAdmin(c, out)
}

// CancelCard handles cancel_setcard.
func (s *Set) CancelCard(c telebot.Context) error {
	_ = answer(c, "", false)

	out, err := s.Admin.CancelCard(ContextOf(c), senderID(c))
	if err != nil {
		return err
	}
	return s.renderAdmin(c, out)
}

// Cards lists cards; admin_cards_<page> turns pages.
func (s *Set) Cards(c telebot.Context) error {
	_ = answer(c, "", false)

	page, err := strconv.Atoi(callbackPayload(c, keyboard.CbAdminCards))
	if err != nil {
		page = 1
	}

	cards, err := s.Admin.Cards(ContextOf(c), senderID(c))
	if err != nil {
		return err
	}
	return s.renderCards(c, cards, page)
}

// ToggleCard handles card_toggle_<id>.
func (s *Set) ToggleCard(c telebot.Context) error {
	ctx := ContextOf(c)
	t := TranslatorOf(c)
	userID := senderID(c)

	cardID, ok := callbackID(c, keyboard.CbCardToggle)
	if !ok {
		return answer(c, t.T("admin.card_not_found"), true)
	}

	card, err := s.Admin.ToggleCard(ctx, userID, cardID)
	if errors.Is(err, store.ErrNotFound) {
		return answer(c, t.T("admin.card_not_found"), true)
	}
	if err != nil {
		return err
	}

	key := "admin.card_disabled"
	if card.Active {
		key = "admin.card_enabled"
	}
	_ = answer(c, t.T(key, "id", card.ID), false)

	cards, err := s.Admin.Cards(ctx, userID)
	if err != nil {
		return err
	}
	return s.renderCards(c, cards, pageOf(cards, cardID))
}

// DeleteCard handles card_delete_<id>.
func (s *Set) DeleteCard(c telebot.Context) error {
	ctx := ContextOf(c)
	t := TranslatorOf(c)
	userID := senderID(c)

	cardID, ok := callbackID(c, keyboard.CbCardDelete)
	if !ok {
		return answer(c, t.T("admin.card_not_found"), true)
	}

	before, err := s.Admin.Cards(ctx, userID)
	if err != nil {
		return err
	}
	page := pageOf(before, cardID)

	err = s.Admin.DeleteCard(ctx, userID, cardID)
	if errors.Is(err, store.ErrNotFound) {
		return answer(c, t.T("admin.card_not_found"), true)
	}
	if err != nil {
		return err
	}
	_ = answer(c, t.T("admin.card_deleted", "id", cardID), false)

	cards, err := s.Admin.Cards(ctx, userID)
	if err != nil {
		return err
	}
	return s.renderCards(c, cards, page)
}

func (s *Set) renderCards(c telebot.Context, cards []domain.Card, page int) error {
	t := TranslatorOf(c)

	text := t.T("admin.cards_title", "count", len(cards))
	if len(cards) == 0 {
		text = t.T("admin.cards_empty")
	}
	return reply(c, text, s.Keyboards.Cards(t, cards, page))
}

// pageOf returns the list page showing cardID, the first page when it is absent.
func pageOf(cards []domain.Card, cardID int64) int {
	for i, card := range cards {
		if card.ID == cardID {
			return i/keyboard.PageSize + 1
		}
	}
	return 1
}

// Currencies shows the currency switches.
func (s *Set) Currencies(c telebot.Context) error {
	_ = answer(c, "", false)
	t := TranslatorOf(c)

	enabled, err := s.Admin.EnabledCurrencies(ContextOf(c), senderID(c))
	if err != nil {
		return err
	}
	return reply(c, t.T("admin.currencies_title"), s.Keyboards.CurrencyToggles(t, enabled))
}

// ToggleCurrency handles admin_toggle_currency_<CCY>.
func (s *Set) ToggleCurrency(c telebot.Context) error {
	t := TranslatorOf(c)

	enabled, err := s.Admin.ToggleCurrency(ContextOf(c), senderID(c), callbackPayload(c, keyboard.CbAdminToggleCurrency))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(enabled))
	for _, cur := range enabled {
		names = append(names, string(cur))
	}
	_ = answer(c, t.T("admin.currency_toggled", "currencies", strings.Join(names, ", ")), false)

	return reply(c, t.T("admin.currencies_title"), s.Keyboards.CurrencyToggles(t, enabled))
}

// EditSupport starts the support message draft.
func (s *Set) EditSupport(c telebot.Context) error {
	_ = answer(c, "", false)

	out, err := s.Admin.BeginSupportEdit(ContextOf(c), senderID(c))
	if err != nil {
		return err
	}
	return s.renderAdmin(c, out)
}

// SupportText handles the support text typed during the draft.
func (s *Set) SupportText(c telebot.Context) error {
	out, err := s.Admin.SubmitSupportText(ContextOf(c), senderID(c), c.Text())
	if err != nil {
		return err
	}
	return s.renderAdmin(c, out)
}

func (s *Set) ConfirmSupport(c telebot.Context) error {
	_ = answer(c, "", false)

	out, err := s.Admin.ConfirmSupport(ContextOf(c), senderID(c))
	if err != nil {
		return err
	}
	return s.renderAdmin(c, out)
}

func (s *Set) CancelSupport(c telebot.Context) error {
	_ = answer(c, "", false)

	out, err := s.Admin.CancelSupport(ContextOf(c), senderID(c))
	if err != nil {
		return err
	}
	return s.renderAdmin(c, out)
}

func (s *Set) renderAdmin(c telebot.Context, out admin.Outcome) error {
	t := TranslatorOf(c)
	kb := s.Keyboards

	switch out.Kind {
	case admin.KindAskCardDetails:
		return reply(c, t.T("admin.card_details_prompt"), kb.CancelCard(t))
	case admin.KindInvalidCardDetails:
		return c.Send(t.T("admin.card_details_invalid"), kb.CancelCard(t))
	case admin.KindAskCardCurrency:
		return reply(c, t.T("admin.card_currency_prompt"), kb.CardCurrencies(t))
	case admin.KindConfirmCard:
		return reply(c, t.T("admin.card_confirm", "details", out.Details, "currency", out.Currency.Label()), kb.ConfirmCard(t))
	case admin.KindCardAdded:
		return reply(c, t.T("admin.card_added", "id", out.Card.ID, "currency", string(out.Currency)), kb.BackToPanel(t))
	case admin.KindCardCancelled:
		return reply(c, t.T("admin.card_cancelled"), kb.BackToPanel(t))
	case admin.KindAskSupportText:
		return reply(c, t.T("admin.support_prompt"), kb.CancelSupport(t))
	case admin.KindInvalidSupportText:
		return c.Send(t.T("admin.support_invalid"), kb.CancelSupport(t))
	case admin.KindConfirmSupport:
		return reply(c, t.T("admin.support_confirm", "text", out.Text), kb.ConfirmSupport(t))
	case admin.KindSupportSaved:
		return reply(c, t.T("admin.support_saved"), kb.BackToPanel(t))
	case admin.KindSupportCancelled:
		return reply(c, t.T("admin.support_cancelled"), kb.BackToPanel(t))
	default:
		return reply(c, t.T("errors.wrong_state"), kb.BackToPanel(t))
	}
}
