package extract

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

func TestResolveDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"2026-09-15", "2026-09-15", true},
		{"วันนี้", "2026-08-31", true},
		{"พรุ่งนี้", "2026-09-01", true},
		{"วันพรุ่งนี้", "2026-09-01", true},
		{"มะรืนนี้", "2026-09-02", true},
		{"เมื่อวาน", "2026-08-30", true},
		{"สัปดาห์หน้า", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := ResolveDate(tc.raw, fixedNow)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ResolveDate(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestResolveTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"14:00", "14:00", true},
		{"9:05", "09:05", true},
		{"14.30", "14:30", true},
		{"เที่ยง", "12:00", true},
		{"เที่ยงคืน", "00:00", true},
		{"บ่ายโมง", "13:00", true},
		{"บ่ายสอง", "14:00", true},
		{"บ่าย 2", "14:00", true},
		{"บ่ายสามครึ่ง", "15:30", true},
		{"สองทุ่ม", "20:00", true},
		{"1 ทุ่ม", "19:00", true},
		{"ตีห้า", "05:00", true},
		{"ห้าโมงเย็น", "17:00", true},
		{"เก้าโมง", "09:00", true},
		{"สิบโมงครึ่ง", "10:30", true},
		{"ก่อนเลิกเรียน", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := ResolveTime(tc.raw, fixedNow)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ResolveTime(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
