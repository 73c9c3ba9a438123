package rank

import (
	"sort"
	"strings"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

// Ranking is pure: a fixed candidate set and a fixed query always produce
// the same order. Score is keyword overlap with the query; ties go to the
// most recent item, then the smaller id, so the order never depends on map
// iteration or input ordering.
//
// Thai has no word spacing, so overlap is measured by contiguous shared
// substrings instead of token sets. Anything shorter than minRunOverlap
// runes is noise and scores zero.

const minRunOverlap = 3

// Gallery orders gallery candidates by relevance to the user's query.
func Gallery(items []contractx.GalleryItem, query string) []contractx.GalleryItem {
	out := append([]contractx.GalleryItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		si := galleryScore(out[i], query)
		sj := galleryScore(out[j], query)
		if si != sj {
			return si > sj
		}
		if !out[i].ShotAt.Equal(out[j].ShotAt) {
			return out[i].ShotAt.After(out[j].ShotAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Tickets orders ticket candidates: matches on the query first, then most
// recently opened.
func Tickets(items []contractx.TicketInfo, query string) []contractx.TicketInfo {
	out := append([]contractx.TicketInfo(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		si := overlap(query, out[i].Category, out[i].Detail, out[i].Location)
		sj := overlap(query, out[j].Category, out[j].Detail, out[j].Location)
		if si != sj {
			return si > sj
		}
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.After(out[j].OpenedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func galleryScore(item contractx.GalleryItem, query string) int {
	q := normalize(query)
	score := 0
	for _, kw := range item.Keywords {
		if kw = normalize(kw); kw != "" && strings.Contains(q, kw) {
			score += len([]rune(kw))
		}
	}
	score += overlap(query, item.Title)
	return score
}

// overlap sums the longest contiguous rune overlap between the query and
// each field, ignoring matches below the noise threshold.
func overlap(query string, fields ...string) int {
	q := []rune(normalize(query))
	if len(q) == 0 {
		return 0
	}
	score := 0
	for _, field := range fields {
		f := []rune(normalize(field))
		if n := longestCommonRun(q, f); n >= minRunOverlap {
			score += n
		}
	}
	return score
}

func longestCommonRun(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return best
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
