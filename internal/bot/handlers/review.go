package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/donation"
	"github.com/Proton-105/donation-bot/internal/i18n"
	"github.com/Proton-105/donation-bot/internal/notify"
	"github.com/Proton-105/donation-bot/internal/store"
)

// Approve handles approve_<id>.
func (s *Set) Approve(c telebot.Context) error {
	return s.decide(c, keyboard.CbApprove, true)
}

// Reject handles reject_<id>.
func (s *Set) Reject(c telebot.Context) error {
	return s.decide(c, keyboard.CbReject, false)
}

func (s *Set) decide(c telebot.Context, prefix string, approve bool) error {
	ctx := ContextOf(c)
	t := TranslatorOf(c)

	txID, ok := callbackID(c, prefix)
	if !ok {
		return answer(c, t.T("review.not_found"), true)
	}

	out, err := s.Donations.Decide(ctx, senderID(c), txID, approve)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return answer(c, t.T("review.not_found"), true)
	case errors.Is(err, donation.ErrAwaitingProof):
		return answer(c, t.T("review.not_ready"), true)
	case errors.Is(err, donation.ErrNotAuthorized):
		return answer(c, t.T("review.not_authorized"), true)
	case err != nil:
		return err
	}

	tx := out.Transaction
	status := t.T("status." + string(tx.Status))
	s.closeReview(c, t, tx.Status)

	if out.Kind == donation.KindAlreadyDecided {
		return answer(c, t.T("review.already_decided", "id", tx.ID, "status", status), true)
	}

	s.notifyDonor(ctx, tx)
	return answer(c, t.T("review.decided", "status", status), false)
}

// closeReview appends the verdict to the review message and removes its buttons.
func (s *Set) closeReview(c telebot.Context, t i18n.Translator, status domain.Status) {
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return
	}

	verdict := t.T("review.verdict_rejected")
	if status == domain.StatusApproved {
		verdict = t.T("review.verdict_approved")
	}

	body := cb.Message.Caption
	if cb.Message.Photo == nil {
		body = cb.Message.Text
	}
	text := strings.TrimSpace(body + "\n\n" + verdict)

	var err error
	if cb.Message.Photo != nil {
		err = c.EditCaption(text, &telebot.ReplyMarkup{})
	} else {
		err = c.Edit(text, &telebot.ReplyMarkup{})
	}
	if err != nil && !errors.Is(err, telebot.ErrSameMessageContent) && !errors.Is(err, telebot.ErrMessageNotModified) {
		s.Log.Warn("failed to close review message", slog.Int("message_id", cb.Message.ID), slog.Any("error", err))
	}
}

// notifyDonor tells the donor about the decision. A failed delivery never undoes it.
func (s *Set) notifyDonor(ctx context.Context, tx *domain.Transaction) {
	if s.Notifier == nil {
		return
	}

	key := "review.donor_rejected"
	if tx.Status == domain.StatusApproved {
		key = "review.donor_approved"
	}

	t := s.translatorFor(ctx, tx.UserID)
	msg := notify.Message{
		ChatID: tx.UserID,
		Text:   t.T(key, "id", tx.ID, "amount", tx.FormatAmount()),
	}
	if err := s.Notifier.Notify(ctx, msg); err != nil {
		s.Log.Error("failed to notify donor",
			slog.Int64("transaction_id", tx.ID),
			slog.Int64("donor_id", tx.UserID),
			slog.Any("error", err),
		)
	}
}
