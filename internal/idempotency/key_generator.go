package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateKey hashes parts into a fixed-length key.
func GenerateKey(parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// UpdateKey identifies a Telegram update by its update id.
func UpdateKey(updateID int) string {
	if updateID == 0 {
		return ""
	}
	return GenerateKey("update", updateID)
}

// CallbackKey identifies a callback query.
func CallbackKey(queryID string) string {
	if queryID == "" {
		return ""
	}
	return GenerateKey("cb", queryID)
}

// MessageKey identifies a message within its chat.
func MessageKey(chatID int64, messageID int) string {
	if messageID == 0 {
		return ""
	}
	return GenerateKey("msg", chatID, messageID)
}
