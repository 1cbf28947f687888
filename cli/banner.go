// Package cli renders the boxed banners and summaries printed by the demo
// binaries.
package cli

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/amp-labs/imperative/envutil"
	"golang.org/x/text/width"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"
)

// Alignment of banner lines.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

const (
	bannerPadding   = 2
	dividerPadding  = 2
	truncateReserve = 1
	halfDivisor     = 2
	wideCells       = 2
)

// DefaultTerminalWidth is used when COLUMNS is unset or unusable.
const DefaultTerminalWidth = 80

// Width returns the terminal width from COLUMNS.
func Width(ctx context.Context) int {
	w := envutil.Int(ctx, "COLUMNS", envutil.Default(DefaultTerminalWidth)).ValueOrElse(DefaultTerminalWidth)
	if w <= bannerPadding {
		return DefaultTerminalWidth
	}

	return w
}

// suppressed reports whether IMPERATIVE_NO_BANNER asks for plain output.
func suppressed(ctx context.Context) bool {
	return envutil.Bool(ctx, "IMPERATIVE_NO_BANNER", envutil.Default(false)).ValueOrElse(false)
}

// Divider returns a horizontal rule of the given width.
func Divider(width int) string {
	return fmt.Sprintf("%s%s%s\n", dividerLeft, strings.Repeat(dividerMiddle, width-dividerPadding), dividerRight)
}

// BannerAutoWidth boxes s at the terminal width.
func BannerAutoWidth(ctx context.Context, s string, a Alignment) string {
	if suppressed(ctx) {
		return s + "\n"
	}

	return Banner(s, Width(ctx), a)
}

// Banner boxes each line of s into width columns, truncating long lines
// with an ellipsis.
func Banner(s string, width int, alignment Alignment) string {
	lines := getLines(s)
	if len(lines) == 0 || width <= bannerPadding {
		return ""
	}

	inner := width - bannerPadding
	parts := []string{boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight}

	for _, l := range lines {
		var line string

		switch alignment {
		case AlignCenter:
			line = padCenter(l, inner)
		case AlignLeft:
			line = padLeft(l, inner)
		case AlignRight:
			line = padRight(l, inner)
		default:
			return ""
		}

		parts = append(parts, boxSide+line+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n") + "\n"
}

// KeyValues renders pairs as aligned "key  value" lines, suitable for a
// Banner body.
func KeyValues(pairs ...any) string {
	keys := make([]string, 0, len(pairs)/halfDivisor)
	values := make([]string, 0, len(pairs)/halfDivisor)
	widest := 0

	for i := 0; i+1 < len(pairs); i += 2 {
		key := fmt.Sprint(pairs[i])
		keys = append(keys, key)
		values = append(values, fmt.Sprint(pairs[i+1]))
		widest = max(widest, cells(key))
	}

	var sb strings.Builder

	for i, key := range keys {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(key)
		sb.WriteString(strings.Repeat(" ", widest-cells(key)+bannerPadding))
		sb.WriteString(values[i])
	}

	return sb.String()
}

func getLines(s string) []string {
	s = strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if s == "" {
		return nil
	}

	return strings.Split(s, "\n")
}

// cells returns the terminal width of s. Wide and fullwidth runes take two
// cells; non-graphic runes take none.
func cells(s string) int {
	count := 0

	for _, r := range s {
		count += runeCells(r)
	}

	return count
}

func runeCells(r rune) int {
	if !unicode.IsGraphic(r) {
		return 0
	}

	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return wideCells
	default:
		return 1
	}
}

// fit truncates text to limit cells and returns it with its width.
func fit(text string, limit int) (string, int) {
	length := cells(text)
	if length <= limit {
		return text, length
	}

	var sb strings.Builder

	count := 0

	for _, r := range text {
		w := runeCells(r)
		if count+w > limit-truncateReserve {
			break
		}

		count += w

		sb.WriteRune(r)
	}

	return sb.String() + ellipsis, count + 1
}

func padCenter(text string, width int) string {
	str, length := fit(text, width)
	diff := width - length
	left := diff / halfDivisor

	return strings.Repeat(" ", left) + str + strings.Repeat(" ", diff-left)
}

func padLeft(text string, width int) string {
	str, length := fit(text, width)

	return str + strings.Repeat(" ", width-length)
}

func padRight(text string, width int) string {
	str, length := fit(text, width)

	return strings.Repeat(" ", width-length) + str
}
