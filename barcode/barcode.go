// Package barcode derives the printable code stored with every entity.
// Codes are computed once at creation and never recomputed.
package barcode

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func Item(id string) string { return "INV-" + strings.ToUpper(id) }

func Borrow(id string) string { return "BRW-" + strings.ToUpper(id) }

// User hashes the normalized email so the code does not leak the address.
func User(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "USR-" + strings.ToUpper(hex.EncodeToString(sum[:6]))
}
