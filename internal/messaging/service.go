// Package messaging delivers outbound WhatsApp replies. Sender is the
// contract the webhook surface depends on; the Twilio client is the
// production implementation.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chatea-chevere/orderbot/internal/util"
)

// Validation errors.
var (
	ErrEmptyRecipient   = errors.New("recipient cannot be empty")
	ErrInvalidRecipient = errors.New("invalid phone number")
)

// minPhoneDigits is the shortest canonicalized number accepted for delivery.
const minPhoneDigits = 6

// Sender sends WhatsApp text messages.
type Sender interface {
	// ValidateAndCanonicalizeRecipient normalizes a recipient to the digits
	// WhatsApp expects, prefixing the Colombian country code on ten-digit
	// local numbers.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)
	// SendMessage delivers body to the canonicalized recipient.
	SendMessage(ctx context.Context, to string, body string) error
}

// canonicalizeRecipient strips non-digits, applies the country-code rule and
// validates the result. Shared by all Sender implementations.
func canonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", ErrEmptyRecipient
	}

	canonical := util.FormatPhoneNumber(recipient)
	if canonical == "" {
		return "", fmt.Errorf("%w: no digits found in recipient %q", ErrInvalidRecipient, recipient)
	}
	if len(canonical) < minPhoneDigits {
		return "", fmt.Errorf("%w: %q is too short (minimum %d digits required)", ErrInvalidRecipient, canonical, minPhoneDigits)
	}

	if canonical != recipient {
		slog.Debug("Messaging canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}
