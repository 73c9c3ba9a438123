package identity

import (
	"regexp"
	"strings"
)

// RegistrationPrompt is sent to senders with no binding yet.
const RegistrationPrompt = "ยังไม่ได้ลงทะเบียนครับ พิมพ์ \"ลงทะเบียน อีเมลโรงเรียนของคุณ\" เช่น ลงทะเบียน somchai@school.ac.th"

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// ParseRegistration recognizes a registration message and pulls the school
// email out of it. Both the Thai and English keyword are accepted.
func ParseRegistration(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	if !strings.Contains(trimmed, "ลงทะเบียน") && !strings.Contains(lower, "register") {
		return "", false
	}
	email := emailPattern.FindString(trimmed)
	if email == "" {
		return "", false
	}
	return strings.ToLower(email), true
}
