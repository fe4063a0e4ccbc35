package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ablizer/ablizer/internal/outcome"
	"github.com/ablizer/ablizer/internal/stats"
)

// Styles defines the visual theme for terminal report output.
// Lipgloss degrades to plain text when output is not a TTY.
type Styles struct {
	Header       lipgloss.Style
	TableHeader  lipgloss.Style
	Muted        lipgloss.Style
	SummaryLabel lipgloss.Style
	Winning      lipgloss.Style
	Losing       lipgloss.Style
	Other        lipgloss.Style
}

// DefaultStyles returns the default color scheme for terminal reports.
func DefaultStyles() Styles {
	return Styles{
		Header:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		TableHeader:  lipgloss.NewStyle().Bold(true),
		Muted:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		SummaryLabel: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Winning:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		Losing:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Other:        lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

func (s Styles) label(l outcome.Label) string {
	text := strings.ToUpper(string(l))
	switch l {
	case outcome.Winning:
		return s.Winning.Render(text)
	case outcome.Losing:
		return s.Losing.Render(text)
	}
	return s.Other.Render(text)
}

// WriteText writes a human-readable report for one test.
func WriteText(w io.Writer, rep Report) error {
	return writeText(w, rep, DefaultStyles())
}

func writeText(w io.Writer, rep Report, st Styles) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", st.Header.Render("TEST: "+rep.TestName))
	if rep.Metric != "" {
		fmt.Fprintf(&b, "%s\n", st.Muted.Render("METRIC: "+rep.Metric))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s\n", st.TableHeader.Render(fmt.Sprintf("%-10s  %-11s  %-11s  %-8s  %s",
		"VARIANT", "IMPRESSIONS", "CONVERSIONS", "RATE", "95% CI")))
	b.WriteString(strings.Repeat("─", 62) + "\n")

	writeRow := func(name string, impressions, conversions int) {
		lower, upper := stats.WilsonInterval(conversions, impressions, 0.95)
		rate := stats.Sample{Impressions: impressions, Conversions: conversions}.Rate()
		fmt.Fprintf(&b, "%-10s  %-11s  %-11s  %-8s  [%.1f%%, %.1f%%]\n",
			name, FormatNumber(impressions), FormatNumber(conversions), FormatPercent(rate), lower*100, upper*100)
	}
	writeRow("A", rep.SampleSizeA, rep.ConversionsA)
	writeRow("B", rep.SampleSizeB, rep.ConversionsB)
	b.WriteString("\n")

	line := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", st.SummaryLabel.Render(fmt.Sprintf("%-12s", label+":")), value)
	}
	line("Method", string(rep.Method))
	line("Difference", fmt.Sprintf("%+.2f pp", rep.Difference*100))
	line("Uplift", fmt.Sprintf("%+.2f%%", rep.IncreasePercent))
	line("p-value", fmt.Sprintf("%.4f (alpha %.3g)", rep.PValue, rep.Alpha))
	if rep.CI95 != nil {
		line("95% CI", fmt.Sprintf("[%+.2f pp, %+.2f pp]", rep.CI95[0]*100, rep.CI95[1]*100))
	} else {
		line("95% CI", st.Muted.Render("n/a for "+string(rep.Method)))
	}
	if rep.StandardDeviation != nil {
		line("z", fmt.Sprintf("%.3f", *rep.StandardDeviation))
	}
	line("Verdict", st.label(rep.Outcome))
	b.WriteString("\n" + rep.Summary + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatPercent renders a fraction as a percentage with two decimals.
func FormatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}

// FormatNumber adds thousands separators to n.
func FormatNumber(n int) string {
	digits := strconv.FormatInt(int64(n), 10)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	b.WriteString(sign)
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
