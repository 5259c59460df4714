package privacy

import (
	"strings"

	"colegiobot/internal/constants"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits.
// The gateway's "whatsapp:" channel prefix is preserved so logs stay
// readable. Example: "whatsapp:+5215512345678" -> "whatsapp:+*******5678".
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	if rest, ok := strings.CutPrefix(phone, "whatsapp:"); ok {
		return "whatsapp:" + MaskPhoneNumber(rest)
	}

	keep := constants.DefaultPhoneMaskLength

	if strings.HasPrefix(phone, "+") {
		if len(phone) == 1 {
			return phone
		}
		if len(phone) <= keep+1 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-keep-1) + phone[len(phone)-keep:]
	}

	return maskString(phone, keep)
}

// MaskBody truncates a message body for logging. Full bodies never go
// to the log stream; they live in the database only.
func MaskBody(body string) string {
	const maxLen = 20
	runes := []rune(body)
	if len(runes) <= maxLen {
		return body
	}
	return string(runes[:maxLen]) + "..."
}

// maskString masks a string showing only the last n characters.
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies masking to common logging fields.
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{})
	for k, v := range fields {
		switch k {
		case "phone", "phone_number", "from", "to":
			if s, ok := v.(string); ok {
				masked[k] = MaskPhoneNumber(s)
			} else {
				masked[k] = v
			}
		case "body", "message", "reply":
			if s, ok := v.(string); ok {
				masked[k] = MaskBody(s)
			} else {
				masked[k] = v
			}
		default:
			masked[k] = v
		}
	}

	return masked
}
