package booking

import (
	"fmt"
	"strings"

	"github.com/xiaot623/ragbook/internal/domain"
)

const rePromptPrefix = "To schedule your interview, I need: "

// ConfirmationMessage is the assistant reply after a booking is stored.
func ConfirmationMessage(d domain.BookingDraft) string {
	return fmt.Sprintf("Great! I've scheduled your interview for %s on %s at %s. Confirmation will be sent to %s.",
		d.Name, d.Date, d.Time, d.Email)
}

// RePromptMessage asks for the missing fields. note, when set, explains why
// a value that was given could not be accepted.
func RePromptMessage(missing []string, note string) string {
	msg := rePromptPrefix + strings.Join(missing, ", ") + ". Please provide these details."
	if note != "" {
		msg += " " + note
	}
	return msg
}

// IsRePrompt reports whether an assistant message is a booking re-prompt.
func IsRePrompt(text string) bool {
	return strings.HasPrefix(text, rePromptPrefix)
}

// ScheduledMessage is returned by the direct scheduling operation.
func ScheduledMessage(b *domain.Booking) string {
	return fmt.Sprintf("Interview scheduled successfully for %s on %s at %s", b.Name, b.Date, b.Time)
}
