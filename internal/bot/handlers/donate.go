package handlers

import (
	"context"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/donation"
	"github.com/Proton-105/donation-bot/internal/i18n"
	"github.com/Proton-105/donation-bot/internal/notify"
	"github.com/Proton-105/donation-bot/internal/state"
)

// Donate offers a donation to the session or preferred recipient.
func (s *Set) Donate(c telebot.Context) error {
	ctx := ContextOf(c)
	t := TranslatorOf(c)

	recipient, err := s.Donations.Recipient(ctx, senderID(c))
	if err != nil {
		return err
	}
	if recipient == 0 {
		return c.Send(t.T("donate.referral_required"), s.mainMenu(c))
	}

	name := s.displayName(ctx, recipient)
	return c.Send(t.T("donate.offer", "name", name), s.Keyboards.DonateTo(t, recipient, name))
}

// DonateTo starts a donation to the recipient on a donate_to_<id> button.
func (s *Set) DonateTo(c telebot.Context) error {
	recipient, ok := callbackID(c, keyboard.CbDonateTo)
	if !ok {
		return answer(c, "", false)
	}
	_ = answer(c, "", false)

	out, err := s.Donations.Begin(ContextOf(c), donation.BeginRequest{UserID: senderID(c), Recipient: recipient})
	if err != nil {
		return err
	}
	return s.renderDonation(c, out)
}

// SelectCurrency handles a currency_<CCY> button.
func (s *Set) SelectCurrency(c telebot.Context) error {
	_ = answer(c, "", false)

	out, err := s.Donations.SelectCurrency(ContextOf(c), senderID(c), callbackPayload(c, keyboard.CbCurrency))
	if err != nil {
		return err
	}
	return s.renderDonation(c, out)
}

// EnterAmount handles text while the amount is expected.
func (s *Set) EnterAmount(c telebot.Context) error {
	out, err := s.Donations.EnterAmount(ContextOf(c), senderID(c), c.Text())
	if err != nil {
		return err
	}
	return s.renderDonation(c, out)
}

// SubmitProof handles any message while the payment screenshot is expected.
// Only photos count as proof.
func (s *Set) SubmitProof(c telebot.Context) error {
	ctx := ContextOf(c)

	ref, isImage := "", false
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		ref, isImage = msg.Photo.FileID, true
	}

	out, err := s.Donations.SubmitProof(ctx, senderID(c), ref, isImage)
	if err != nil {
		return err
	}

	if out.Kind == donation.KindSubmitted {
		s.requestReview(ctx, c.Sender(), out)
	}
	return s.renderDonation(c, out)
}

// Cancel aborts whatever flow the sender is in.
func (s *Set) Cancel(c telebot.Context) error {
	ctx := ContextOf(c)
	userID := senderID(c)

	step, err := s.Sessions.Load(ctx, userID)
	if err != nil {
		return err
	}

	switch step.(type) {
	case state.AdminCardDetails, state.AdminCardCurrency, state.AdminCardConfirm:
		return s.CancelCard(c)
	case state.AdminSupportText, state.AdminSupportConfirm:
		return s.CancelSupport(c)
	}

	_ = answer(c, "", false)
	out, err := s.Donations.Cancel(ctx, userID)
	if err != nil {
		return err
	}
	return s.renderDonation(c, out)
}

func (s *Set) renderDonation(c telebot.Context, out donation.Outcome) error {
	t := TranslatorOf(c)

	switch out.Kind {
	case donation.KindChooseCurrency:
		text := t.T("donate.choose_currency")
		if out.Amount != nil {
			text = t.T("donate.choose_currency_amount", "amount", out.Amount.StringFixed(2))
		}
		return reply(c, text, s.Keyboards.Currencies(t, out.Currencies))
	case donation.KindCurrencyUnavailable:
		return reply(c, t.T("donate.currency_unavailable", "currency", string(out.Currency)), s.Keyboards.Currencies(t, out.Currencies))
	case donation.KindAskAmount:
		return reply(c, t.T("donate.ask_amount", "currency", out.Currency.Label()), s.Keyboards.Cancel(t))
	case donation.KindInvalidAmount:
		return c.Send(t.T("donate.invalid_amount"), s.Keyboards.Cancel(t))
	case donation.KindAwaitProof:
		return reply(c, t.T("donate.await_proof",
			"id", out.Transaction.ID,
			"amount", out.Transaction.FormatAmount(),
			"details", out.Card.Details,
		), s.Keyboards.Cancel(t))
	case donation.KindProofRequired:
		return c.Send(t.T("donate.proof_required"), s.Keyboards.Cancel(t))
	case donation.KindSubmitted:
		return c.Send(t.T("donate.submitted", "id", out.Transaction.ID), s.mainMenu(c))
	case donation.KindNoCard:
		return c.Send(t.T("donate.no_card", "currency", string(out.Currency)), s.mainMenu(c))
	case donation.KindReferralRequired:
		return c.Send(t.T("donate.referral_required"), s.mainMenu(c))
	case donation.KindNoCurrencies:
		return c.Send(t.T("donate.no_currencies"), s.mainMenu(c))
	case donation.KindCancelled:
		return c.Send(t.T("donate.cancelled"), s.mainMenu(c))
	case donation.KindNothingToCancel:
		return c.Send(t.T("donate.nothing_to_cancel"), s.mainMenu(c))
	case donation.KindSessionExpired:
		return c.Send(t.T("donate.session_expired"), s.mainMenu(c))
	default:
		s.Log.Warn("unrendered donation outcome", slog.String("kind", out.Kind.String()))
		return nil
	}
}

// requestReview forwards the proof to every reviewer in the reviewer's language.
// Delivery failures are logged; the submission stands.
func (s *Set) requestReview(ctx context.Context, donor *telebot.User, out donation.Outcome) {
	if s.Notifier == nil || out.Transaction == nil {
		return
	}
	tx := out.Transaction

	msgs := make([]notify.Message, 0, len(out.Reviewers))
	for _, reviewer := range out.Reviewers {
		t := s.translatorFor(ctx, reviewer)
		msgs = append(msgs, notify.Message{
			ChatID:  reviewer,
			PhotoID: tx.ProofRef,
			Text: t.T("review.new",
				"id", tx.ID,
				"donor", donorLabel(donor),
				"amount", tx.FormatAmount(),
			),
			Buttons: keyboard.ReviewRows(t, tx.ID),
		})
	}

	notify.Multi(ctx, s.Notifier, msgs, func(msg notify.Message, err error) {
		s.Log.Error("failed to deliver review request",
			slog.Int64("transaction_id", tx.ID),
			slog.Int64("chat_id", msg.ChatID),
			slog.Any("error", err),
		)
	})
}

func (s *Set) translatorFor(ctx context.Context, userID int64) i18n.Translator {
	lang, err := s.Users.Language(ctx, userID)
	if err != nil {
		s.Log.Warn("falling back to default language", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return s.Catalog.Translator(lang)
}

func (s *Set) displayName(ctx context.Context, userID int64) string {
	u, err := s.Users.Get(ctx, userID)
	if err == nil {
		if name := u.DisplayName(); name != "" {
			return name
		}
	}
	return "#" + strconv.FormatInt(userID, 10)
}

func donorLabel(u *telebot.User) string {
	if u == nil {
		return ""
	}

	label := (&domain.User{FirstName: u.FirstName, Username: u.Username}).DisplayName()
	if u.Username != "" && u.FirstName != "" {
		label += " (@" + u.Username + ")"
	}
	if label == "" {
		return "#" + strconv.FormatInt(u.ID, 10)
	}
	return label + " #" + strconv.FormatInt(u.ID, 10)
}
