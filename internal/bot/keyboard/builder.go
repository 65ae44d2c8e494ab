package keyboard

import (
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/i18n"
)

// Builder creates the inline keyboards of the donation and admin flows.
type Builder struct {
	log  *slog.Logger
	i18n *i18n.Manager
}

// NewBuilder returns a new Builder instance.
func NewBuilder(catalog *i18n.Manager, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log, i18n: catalog}
}

func (b *Builder) render(kb *InlineKeyboardBuilder) *telebot.ReplyMarkup {
	markup, err := kb.Build()
	if err != nil {
		b.log.Error("failed to build inline keyboard", slog.Any("error", err))
		return nil
	}
	return markup
}

// Languages lists every loaded catalog as lang_<code> buttons.
func (b *Builder) Languages() *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, lang := range b.i18n.Languages() {
		kb.AddRow(InlineButton{
			Text:   b.i18n.Translator(lang).T("language.name"),
			Unique: CbLang,
			Data:   lang,
		})
	}
	return b.render(kb)
}

// Currencies offers the available currencies for a donation plus a cancel button.
func (b *Builder) Currencies(t i18n.Translator, currencies []domain.Currency) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	row := make([]InlineButton, 0, len(currencies))
	for _, c := range currencies {
		row = append(row, InlineButton{Text: c.Label(), Unique: CbCurrency, Data: string(c)})
	}
	kb.AddRow(row...)
	kb.AddRow(cancelButton(t, CbCancel))
	return b.render(kb)
}

// Cancel is a single button that aborts the donation flow.
func (b *Builder) Cancel(t i18n.Translator) *telebot.ReplyMarkup {
	return b.render(NewInlineKeyboard().AddRow(cancelButton(t, CbCancel)))
}

// DonateTo starts a donation to recipient.
func (b *Builder) DonateTo(t i18n.Translator, recipient int64, name string) *telebot.ReplyMarkup {
	return b.render(NewInlineKeyboard().AddRow(InlineButton{
		Text:   t.T("donate.to_button", "name", name),
		Unique: CbDonateTo,
		Data:   strconv.FormatInt(recipient, 10),
	}))
}

// ReviewRows are the approve/reject buttons attached to a forwarded proof.
func ReviewRows(t i18n.Translator, txID int64) [][]InlineButton {
	id := strconv.FormatInt(txID, 10)
	return NewInlineKeyboard().AddRow(
		InlineButton{Text: t.T("review.approve"), Unique: CbApprove, Data: id},
		InlineButton{Text: t.T("review.reject"), Unique: CbReject, Data: id},
	).Rows()
}

// AdminPanel is the admin entry keyboard.
func (b *Builder) AdminPanel(t i18n.Translator) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().
		AddRow(InlineButton{Text: t.T("admin.stats_button"), Unique: CbAdminStats}).
		AddRow(
			InlineButton{Text: t.T("admin.setcard_button"), Unique: CbAdminSetCard},
			InlineButton{Text: t.T("admin.cards_button"), Unique: CbAdminCards},
		).
		AddRow(
			InlineButton{Text: t.T("admin.currencies_button"), Unique: CbAdminCurrencies},
			InlineButton{Text: t.T("admin.support_button"), Unique: CbAdminSupport},
		)
	return b.render(kb)
}

// BackToPanel returns to the admin panel.
func (b *Builder) BackToPanel(t i18n.Translator) *telebot.ReplyMarkup {
	return b.render(NewInlineKeyboard().AddRow(backButton(t)))
}

// CardCurrencies asks which currency a new card belongs to.
func (b *Builder) CardCurrencies(t i18n.Translator) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	row := make([]InlineButton, 0, len(domain.SupportedCurrencies))
	for _, c := range domain.SupportedCurrencies {
		row = append(row, InlineButton{Text: c.Label(), Unique: CbAdminCardCurrency, Data: string(c)})
	}
	kb.AddRow(row...)
	kb.AddRow(cancelButton(t, CbCancelSetCard))
	return b.render(kb)
}

// CancelCard aborts the add-card flow.
func (b *Builder) CancelCard(t i18n.Translator) *telebot.ReplyMarkup {
	return b.render(NewInlineKeyboard().AddRow(cancelButton(t, CbCancelSetCard)))
}

// ConfirmCard confirms or cancels a card draft.
func (b *Builder) ConfirmCard(t i18n.Translator) *telebot.ReplyMarkup {
	return b.render(NewInlineKeyboard().AddRow(
		InlineButton{Text: t.T("common.confirm"), Unique: CbConfirmSetCard},
		cancelButton(t, CbCancelSetCard),
	))
}

// Cards lists one page of cards with toggle and delete buttons.
func (b *Builder) Cards(t i18n.Translator, cards []domain.Card, page int) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	start, end := PageBounds(page, len(cards))
	for _, card := range cards[start:end] {
		id := strconv.FormatInt(card.ID, 10)
		status := t.T("admin.card_inactive")
		if card.Active {
			status = t.T("admin.card_active")
		}
		kb.AddRow(
			InlineButton{Text: status + " " + card.Label(), Unique: CbCardToggle, Data: id},
			InlineButton{Text: t.T("admin.card_delete"), Unique: CbCardDelete, Data: id},
		)
	}

	if pages := TotalPages(len(cards)); pages > 1 {
		kb.AddRow(PaginationButtons(t, CbAdminCards, page, pages)...)
	}
	kb.AddRow(backButton(t))
	return b.render(kb)
}

// CurrencyToggles shows each supported currency with its enabled flag.
func (b *Builder) CurrencyToggles(t i18n.Translator, enabled []domain.Currency) *telebot.ReplyMarkup {
	on := make(map[domain.Currency]bool, len(enabled))
	for _, c := range enabled {
		on[c] = true
	}

	kb := NewInlineKeyboard()
	for _, c := range domain.SupportedCurrencies {
		mark := t.T("admin.currency_off")
		if on[c] {
			mark = t.T("admin.currency_on")
		}
		kb.AddRow(InlineButton{Text: mark + " " + c.Label(), Unique: CbAdminToggleCurrency, Data: string(c)})
	}
	kb.AddRow(backButton(t))
	return b.render(kb)
}

// CancelSupport aborts the support message edit.
func (b *Builder) CancelSupport(t i18n.Translator) *telebot.ReplyMarkup {
	return b.render(NewInlineKeyboard().AddRow(cancelButton(t, CbCancelSupport)))
}

// ConfirmSupport confirms or cancels a support message draft.
func (b *Builder) ConfirmSupport(t i18n.Translator) *telebot.ReplyMarkup {
	return b.render(NewInlineKeyboard().AddRow(
		InlineButton{Text: t.T("common.confirm"), Unique: CbConfirmSupport},
		cancelButton(t, CbCancelSupport),
	))
}

func cancelButton(t i18n.Translator, unique string) InlineButton {
	return InlineButton{Text: t.T("common.cancel"), Unique: unique}
}

func backButton(t i18n.Translator) InlineButton {
	return InlineButton{Text: t.T("common.back"), Unique: CbAdminPanel}
}
