package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderNumberPrefix = "ORD"

// NewOrderNumber generates a human-readable order number: the prefix, the
// last 8 digits of the current millisecond timestamp, and a short
// uppercase random token. Collisions are improbable but not impossible;
// the storage layer enforces uniqueness as a backstop.
func NewOrderNumber() string {
	suffix := time.Now().UnixMilli() % 100_000_000
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%08d-%s", orderNumberPrefix, suffix, token)
}
