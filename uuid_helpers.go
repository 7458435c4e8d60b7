package hospital

import (
	"strings"

	"github.com/google/uuid"
)

// ParseAccountID parses a route id, returning ErrInvalidAccountID when malformed
func ParseAccountID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidAccountID
	}
	return id, nil
}
