// Package identhash derives stable one-way pseudonyms from raw chat
// identifiers so the lead store never holds a plaintext id.
package identhash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Hasher produces hex-encoded HMAC-SHA256 digests keyed with a fixed salt.
// The salt must stay constant across restarts: erase requests match stored
// rows by recomputing the same digest.
type Hasher struct {
	salt []byte
}

func New(salt string) (*Hasher, error) {
	salt = strings.TrimSpace(salt)
	if salt == "" {
		return nil, fmt.Errorf("identhash: empty salt")
	}
	return &Hasher{salt: []byte(salt)}, nil
}

func (h *Hasher) Hash(rawID string) string {
	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte(rawID))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashChatID is a convenience for the integer ids Telegram hands out.
func (h *Hasher) HashChatID(chatID int64) string {
	return h.Hash(strconv.FormatInt(chatID, 10))
}
