package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// OutputFormatter renders Events as human-readable trace lines, with ANSI
// color when writing to a real terminal.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter writing to w (stdout if nil),
// auto-detecting whether w is a terminal that supports color.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &OutputFormatter{useColor: useColor, writer: w}
}

// Handle implements Handler: format and print as events arrive.
func (f *OutputFormatter) Handle(event Event) {
	if line := f.Format(event); line != "" {
		fmt.Fprintln(f.writer, line)
	}
}

// Format converts an event to a single trace line.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case QueryEnqueued:
		return fmt.Sprintf("%s %s %s", latency, f.colorize("+", color.FgCyan), event.Data["kind"])

	case QueryCompleted:
		return fmt.Sprintf("%s %s %s", latency, f.colorize("=", color.FgGreen), event.Data["kind"])

	case QueryPanicked:
		recovered := truncate(fmt.Sprint(event.Data["recovered"]), 120)
		return fmt.Sprintf("%s %s %s: %s", latency, f.colorize("!", color.FgRed), event.Data["kind"], recovered)

	case TrampolinePassBegin:
		return fmt.Sprintf("%s %s trampoline start (%s)", latency, f.colorize("===", color.FgYellow), event.Data["mode"])

	case TrampolinePassEnd:
		return fmt.Sprintf("%s %s trampoline quiesced (%s)", latency, f.colorize("===", color.FgYellow), event.Data["mode"])

	case CollisionDetected:
		return fmt.Sprintf("%s %s name collision: %v", latency, f.colorize("!!!", color.FgRed), event.Data)

	case ArenaAllocation, ArenaClosed, CacheHit, CacheMiss:
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)

	default:
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

func (f *OutputFormatter) formatLatency(d time.Duration) string {
	if d <= 0 {
		return "[ -- ]"
	}
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}
	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)
	if !f.useColor {
		return s
	}
	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler returns a Handler that formats and prints to stdout.
func ConsoleHandler() Handler {
	formatter := NewOutputFormatter(os.Stdout)
	return formatter.Handle
}

// truncate shortens s to at most maxLen runes, collapsing internal
// whitespace first. Used by Format to keep a panic's recovered value from
// blowing out a single trace line when it's a large struct or a long
// source snippet.
func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
