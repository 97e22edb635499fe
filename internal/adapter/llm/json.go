package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xiaot623/ragbook/internal/domain"
)

// StripCodeFence removes a surrounding markdown code fence such as ```json ... ```.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeJSON parses a model reply into v. The reply must be a single JSON object,
// optionally wrapped in a code fence. Any other shape is reported as ErrRemoteUnavailable.
func DecodeJSON(reply string, v any) error {
	body := StripCodeFence(reply)
	if !strings.HasPrefix(body, "{") {
		return fmt.Errorf("%w: reply is not a JSON object", domain.ErrRemoteUnavailable)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: decode reply: %v", domain.ErrRemoteUnavailable, err)
	}
	return nil
}
