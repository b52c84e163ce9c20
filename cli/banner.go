// Package cli holds terminal helpers for fsmctl: boxed banners and
// interactive prompts.
package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/caarlos0/env/v11"
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
	bannerPadding = 2
	halfDivisor   = 2

	// DefaultTerminalWidth is used when the terminal cannot be measured.
	DefaultTerminalWidth = 80
)

type bannerConfig struct {
	NoBanner bool `env:"STATEFUL_NO_BANNER" envDefault:"false"`
}

var suppressBanner = sync.OnceValue(func() bool { //nolint:gochecknoglobals
	cfg, err := env.ParseAs[bannerConfig]()

	return err == nil && cfg.NoBanner
})

// DividerAutoWidth returns a divider as wide as the terminal.
func DividerAutoWidth() string {
	return Divider(TerminalWidth())
}

// BannerAutoWidth returns s boxed as wide as the terminal.
func BannerAutoWidth(s string, a Alignment) string {
	return Banner(s, TerminalWidth(), a)
}

// Divider returns a horizontal rule of width columns.
func Divider(width int) string {
	if width < bannerPadding {
		return ""
	}

	return dividerLeft + strings.Repeat(dividerMiddle, width-bannerPadding) + dividerRight + "\n"
}

// Banner returns the lines of s in a box width columns wide. Lines too long
// for the box are truncated with an ellipsis. With STATEFUL_NO_BANNER set, s
// is returned unboxed.
func Banner(s string, width int, alignment Alignment) string {
	if suppressBanner() {
		return s + "\n"
	}

	if width <= bannerPadding {
		return ""
	}

	inner := width - bannerPadding
	parts := []string{boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight}

	for _, l := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		parts = append(parts, boxSide+pad(l, inner, alignment)+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n") + "\n"
}

func countGraphic(s string) int {
	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			count++
		}
	}

	return count
}

// truncate keeps the first n graphic runes of s.
func truncate(s string, n int) string {
	var sb strings.Builder

	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			if count == n {
				break
			}

			count++
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

func pad(text string, width int, alignment Alignment) string {
	length := countGraphic(text)
	if length > width {
		text = truncate(text, width-1) + ellipsis
		length = width
	}

	diff := width - length

	switch alignment {
	case AlignCenter:
		left := diff / halfDivisor

		return strings.Repeat(" ", left) + text + strings.Repeat(" ", diff-left)
	case AlignRight:
		return strings.Repeat(" ", diff) + text
	default:
		return text + strings.Repeat(" ", diff)
	}
}

// TerminalWidth returns the number of columns of the controlling terminal,
// or DefaultTerminalWidth.
func TerminalWidth() int {
	out, err := size()
	if err != nil {
		return DefaultTerminalWidth
	}

	_, cols, err := parseSize(out)
	if err != nil || cols <= 0 {
		return DefaultTerminalWidth
	}

	return cols
}

func size() (string, error) {
	f, err := os.Open("/dev/tty")
	if err != nil {
		return "", err
	}

	defer f.Close() //nolint:errcheck

	// Outputs: "rows columns"
	cmd := exec.Command("stty", "size")
	cmd.Stdin = f

	out, err := cmd.Output()

	return string(out), err
}

func parseSize(input string) (int, int, error) {
	fields := strings.Fields(input)
	if len(fields) != 2 { //nolint:mnd
		return 0, 0, fmt.Errorf("unexpected stty output %q", input) //nolint:err113
	}

	rows, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, err
	}

	cols, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, err
	}

	return rows, cols, nil
}
