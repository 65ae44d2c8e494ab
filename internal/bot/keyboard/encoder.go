package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator  = "_"
	CallbackDataLimitBytes = 64
)

// Callback prefixes. Buttons carry "<prefix>" or "<prefix>_<payload>".
const (
	CbLang                = "lang"
	CbDonateTo            = "donate_to"
	CbCurrency            = "currency"
	CbCancel              = "cancel"
	CbApprove             = "approve"
	CbReject              = "reject"
	CbAdminPanel          = "admin_panel"
	CbAdminStats          = "admin_stats"
	CbAdminSetCard        = "admin_setcard"
	CbAdminCards          = "admin_cards"
	CbAdminCurrencies     = "admin_currencies"
	CbAdminSupport        = "admin_support"
	CbAdminCardCurrency   = "admin_currency"
	CbConfirmSetCard      = "confirm_setcard"
	CbCancelSetCard       = "cancel_setcard"
	CbCardToggle          = "card_toggle"
	CbCardDelete          = "card_delete"
	CbAdminToggleCurrency = "admin_toggle_currency"
	CbConfirmSupport      = "confirm_support"
	CbCancelSupport       = "cancel_support"
)

// EncodeCallback joins a prefix and payload, enforcing Telegram's callback size limit.
func EncodeCallback(unique, data string) (string, error) {
	if unique == "" {
		return "", errors.New("callback prefix is empty")
	}

	payload := unique
	if data != "" {
		payload = unique + CallbackDataSeparator + data
	}
	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

// MustEncode is EncodeCallback for payloads known to fit.
func MustEncode(unique, data string) string {
	payload, err := EncodeCallback(unique, data)
	if err != nil {
		panic(err)
	}
	return payload
}

// DecodeCallback returns the payload of callbackData when it was built for unique.
func DecodeCallback(callbackData, unique string) (data string, ok bool) {
	callbackData = strings.TrimPrefix(callbackData, "\f")
	if callbackData == unique {
		return "", true
	}

	prefix := unique + CallbackDataSeparator
	if !strings.HasPrefix(callbackData, prefix) {
		return "", false
	}
	return callbackData[len(prefix):], true
}

// Matches reports whether callbackData was built for unique.
func Matches(callbackData, unique string) bool {
	_, ok := DecodeCallback(callbackData, unique)
	return ok
}
