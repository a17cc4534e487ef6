package formatter

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/Kush1612/BuckIt/pkg/api"
)

var (
	Bold    = color.New(color.Bold)
	Success = color.New(color.FgGreen)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Warning = color.New(color.FgYellow)
	Muted   = color.New(color.Faint)
)

var categoryEmoji = map[string]string{
	api.CategoryTravel:    "✈️",
	api.CategoryFood:      "🍜",
	api.CategoryAdventure: "🧗",
	api.CategoryGoals:     "🎯",
	api.CategoryCute:      "💕",
}

// Ago renders a timestamp relative to now, e.g. "3 days ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// Bytes renders a size such as "2.4 MB".
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Count renders n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Plural picks singular or plural by n: Plural(1, "photo", "photos").
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return Count(n) + " " + singular
	}
	return Count(n) + " " + plural
}

// Check renders an item's completion mark.
func Check(done bool) string {
	if done {
		return Success.Sprint("✓")
	}
	return Muted.Sprint("○")
}

// Category renders a category with its emoji.
func Category(c string) string {
	if e, ok := categoryEmoji[c]; ok {
		return e + " " + c
	}
	return c
}

// Truncate shortens s to at most n runes, ending in an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return "…"
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

// MaskKey shows only the first eight characters of a secret.
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return key + "..."
	}
	return key[:8] + "..."
}

// ItemRow is the standard table row for an item.
func ItemRow(it api.Item) []string {
	return []string{
		Check(it.Completed),
		Truncate(it.Title, 40),
		Category(it.Category),
		Plural(len(it.Photos), "photo", "photos"),
		Ago(it.CreatedAt),
		it.ID,
	}
}

// ItemHeaders matches ItemRow.
var ItemHeaders = []string{"", "Title", "Category", "Photos", "Added", "ID"}
