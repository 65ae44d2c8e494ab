package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/skip2/go-qrcode"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/store"
)

const qrSize = 256

// Profile shows the sender's own profile with share links.
func (s *Set) Profile(c telebot.Context) error {
	ctx := ContextOf(c)
	t := TranslatorOf(c)
	userID := senderID(c)

	profile, err := s.Users.Get(ctx, userID)
	if err != nil {
		return err
	}

	total, err := s.Users.TotalDonated(ctx, userID)
	if err != nil {
		return err
	}

	username := t.T("profile.no_username")
	if profile.Username != "" {
		username = "@" + profile.Username
	}

	id := strconv.FormatInt(userID, 10)
	profileLink := s.startLink(id)
	text := t.T("profile.own",
		"name", profile.DisplayName(),
		"username", username,
		"total", total.StringFixed(2),
		"profile_link", profileLink,
		"donate_link", s.startLink("donate_AMOUNT_"+id),
	)

	if err := c.Send(text, s.mainMenu(c), telebot.NoPreview); err != nil {
		return err
	}
	if s.BotUsername == "" {
		return nil
	}

	// The QR code is a convenience; the links above already went out.
	png, err := qrcode.Encode(profileLink, qrcode.Medium, qrSize)
	if err != nil {
		s.Log.Warn("profile qr encode failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil
	}
	return c.Send(&telebot.Photo{
		File:    telebot.FromReader(bytes.NewReader(png)),
		Caption: t.T("profile.qr_caption"),
	})
}

// showPublicProfile shows a referrer's profile and remembers them as the preferred recipient.
func (s *Set) showPublicProfile(c telebot.Context, recipient int64) error {
	ctx := ContextOf(c)
	t := TranslatorOf(c)

	owner, err := s.Users.Get(ctx, recipient)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Send(t.T("profile.not_found"))
		}
		return err
	}

	if err := s.Users.SetPreferredReferrer(ctx, senderID(c), recipient); err != nil {
		return err
	}

	name := s.displayName(ctx, recipient)
	return c.Send(t.T("profile.public", "name", owner.DisplayName()), s.Keyboards.DonateTo(t, recipient, name))
}

func (s *Set) startLink(payload string) string {
	if s.BotUsername == "" {
		return "/start " + payload
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", s.BotUsername, payload)
}
