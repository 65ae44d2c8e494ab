package handlers

import (
	"errors"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/bot/keyboard"
	"github.com/Proton-105/donation-bot/internal/donation"
	"github.com/Proton-105/donation-bot/internal/referral"
	"github.com/Proton-105/donation-bot/internal/state"
	"github.com/Proton-105/donation-bot/internal/user"
)

// Start handles /start with an optional deep-link payload. Users without a language
// pick one first; the payload waits in the session until then.
func (s *Set) Start(c telebot.Context) error {
	ctx := ContextOf(c)
	userID := senderID(c)

	payload := ""
	if msg := c.Message(); msg != nil {
		payload = strings.TrimSpace(msg.Payload)
	}

	lang, err := s.Users.Language(ctx, userID)
	if err != nil {
		return err
	}

	if lang == "" {
		if err := s.Sessions.Save(ctx, userID, state.ChoosingLanguage{Payload: payload}); err != nil {
			return err
		}
		return c.Send(TranslatorOf(c).T("language.prompt"), s.Keyboards.Languages())
	}

	return s.welcome(c, payload)
}

// Language shows the language picker.
func (s *Set) Language(c telebot.Context) error {
	return c.Send(TranslatorOf(c).T("language.prompt"), s.Keyboards.Languages())
}

// ChooseLanguage stores the language from a lang_<code> button and replays a parked
// /start payload.
func (s *Set) ChooseLanguage(c telebot.Context) error {
	ctx := ContextOf(c)
	userID := senderID(c)
	lang := callbackPayload(c, keyboard.CbLang)

	if err := s.Users.SetLanguage(ctx, userID, lang); err != nil {
		if errors.Is(err, user.ErrUnsupportedLanguage) {
			return answer(c, "", false)
		}
		return err
	}

	t := s.Catalog.Translator(lang)
	SetTranslator(c, t)
	_ = answer(c, "", false)

	if err := reply(c, t.T("language.changed")); err != nil {
		s.Log.Warn("failed to confirm language", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	step, err := s.Sessions.Load(ctx, userID)
	if err != nil {
		return err
	}
	if pending, ok := step.(state.ChoosingLanguage); ok {
		if err := s.Sessions.Reset(ctx, userID); err != nil {
			return err
		}
		return s.welcome(c, pending.Payload)
	}

	return c.Send(t.T("menu.prompt"), s.mainMenu(c))
}

// Fallback answers updates nothing else handled.
func (s *Set) Fallback(c telebot.Context) error {
	return c.Send(TranslatorOf(c).T("menu.prompt"), s.mainMenu(c))
}

func (s *Set) welcome(c telebot.Context, payload string) error {
	t := TranslatorOf(c)

	name := ""
	if sender := c.Sender(); sender != nil {
		name = sender.FirstName
	}
	if err := c.Send(t.T("start.welcome", "name", name), s.mainMenu(c)); err != nil {
		return err
	}

	return s.openLink(c, payload)
}

func (s *Set) openLink(c telebot.Context, payload string) error {
	ctx := ContextOf(c)
	userID := senderID(c)

	link := referral.Parse(payload, userID)
	switch link.Kind {
	case referral.Donate:
		amount := link.Amount
		out, err := s.Donations.Begin(ctx, donation.BeginRequest{
			UserID:    userID,
			Amount:    &amount,
			Recipient: link.Recipient,
			FromLink:  true,
		})
		if err != nil {
			return err
		}
		return s.renderDonation(c, out)
	case referral.Profile:
		if !link.HasRecipient() {
			return nil
		}
		return s.showPublicProfile(c, link.Recipient)
	default:
		return nil
	}
}
