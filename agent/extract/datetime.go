package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Relative Thai date and time phrases are resolved here, at extraction time,
// against the current wall clock in the system's local timezone. Domain
// handlers never see a relative phrase.

var (
	clockPattern = regexp.MustCompile(`^([01]?\d|2[0-3])[:.]([0-5]\d)$`)
	digitPattern = regexp.MustCompile(`\d+`)
)

// Longest words first so "สิบเอ็ด" wins over "สิบ" and "เอ็ด".
var thaiNumberWords = []struct {
	word  string
	value int
}{
	{"สิบสอง", 12},
	{"สิบเอ็ด", 11},
	{"สิบ", 10},
	{"เก้า", 9},
	{"แปด", 8},
	{"เจ็ด", 7},
	{"หก", 6},
	{"ห้า", 5},
	{"สี่", 4},
	{"สาม", 3},
	{"สอง", 2},
	{"หนึ่ง", 1},
	{"โมงเดียว", 1},
}

// ResolveDate turns a date slot value into YYYY-MM-DD. Absolute values pass
// through unchanged; relative Thai phrases are resolved against now. The
// second return is false when the phrase is not understood.
func ResolveDate(raw string, now time.Time) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return s, true
	}

	var offset int
	switch {
	case strings.Contains(s, "มะรืน"):
		offset = 2
	case strings.Contains(s, "พรุ่งนี้"), strings.Contains(s, "วันพรุ่ง"):
		offset = 1
	case strings.Contains(s, "วันนี้"):
		offset = 0
	case strings.Contains(s, "เมื่อวาน"):
		offset = -1
	default:
		return "", false
	}
	return now.AddDate(0, 0, offset).Format("2006-01-02"), true
}

// ResolveTime turns a time slot value into HH:MM 24-hour form. Handles the
// Thai clock systems in everyday use: บ่าย (afternoon), ทุ่ม (evening),
// โมงเช้า/โมงเย็น, ตี (small hours), เที่ยง, plus ครึ่ง for half past.
func ResolveTime(raw string, _ time.Time) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%02d:%02d", h, min), true
	}

	minute := 0
	if strings.Contains(s, "ครึ่ง") {
		minute = 30
	}

	switch {
	case strings.Contains(s, "เที่ยงคืน"):
		return fmt.Sprintf("00:%02d", minute), true
	case strings.Contains(s, "เที่ยง"):
		return fmt.Sprintf("12:%02d", minute), true
	case strings.Contains(s, "บ่ายโมง"):
		return fmt.Sprintf("13:%02d", minute), true
	}

	n, hasNumber := leadingNumber(s)

	switch {
	case strings.Contains(s, "บ่าย"):
		if !hasNumber {
			return fmt.Sprintf("13:%02d", minute), true
		}
		if n >= 1 && n <= 5 {
			return fmt.Sprintf("%02d:%02d", 12+n, minute), true
		}
	case strings.Contains(s, "ทุ่ม"):
		if hasNumber && n >= 1 && n <= 5 {
			return fmt.Sprintf("%02d:%02d", 18+n, minute), true
		}
	case strings.Contains(s, "ตี"):
		if hasNumber && n >= 1 && n <= 5 {
			return fmt.Sprintf("%02d:%02d", n, minute), true
		}
	case strings.Contains(s, "โมงเย็น"):
		if hasNumber && n >= 4 && n <= 6 {
			return fmt.Sprintf("%02d:%02d", 12+n, minute), true
		}
	case strings.Contains(s, "โมง"):
		// เก้าโมง = 09:00; สิบโมง = 10:00. Small counts are the เช้า system
		// (สองโมงเช้า = 08:00 in strict usage, but everyday speech means the
		// western hour, which is what staff actually type).
		if hasNumber && n >= 1 && n <= 11 {
			return fmt.Sprintf("%02d:%02d", n, minute), true
		}
	}
	return "", false
}

func leadingNumber(s string) (int, bool) {
	if m := digitPattern.FindString(s); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			return n, true
		}
	}
	for _, w := range thaiNumberWords {
		if strings.Contains(s, w.word) {
			return w.value, true
		}
	}
	return 0, false
}
