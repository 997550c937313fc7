package util

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateInvitationToken returns a fresh random token for an invitation.
func GenerateInvitationToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
