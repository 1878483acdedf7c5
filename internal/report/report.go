// Package report renders analysis results and run summaries as Markdown.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/batch"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// Currency is the display currency of prices.
const Currency = money.USD

// Money formats amount in Currency, rounded to cents.
func Money(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}
	cur := money.GetCurrency(Currency)
	factor := decimal.New(1, int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0).IntPart()
	return money.New(minor, Currency).Display()
}

// Percent formats a signed percentage with two decimals.
func Percent(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

// Shares formats a volume as a whole number with thousands separators.
func Shares(v float64) string {
	return humanize.Comma(int64(math.Round(v))) + " shares"
}

// Summary renders the headline statistics and the per-session series.
func Summary(s *model.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Stock Analysis\n\n", s.Symbol)
	fmt.Fprintf(&b, "Past %d trading days: %s to %s\n\n",
		s.Sessions, s.Start.Format(model.DateFormat), s.End.Format(model.DateFormat))

	b.WriteString("| Metric | Value |\n|---|---|\n")
	row := func(k, v string) { fmt.Fprintf(&b, "| %s | %s |\n", k, v) }
	row("Last session change", Percent(s.LastChangePct))
	row("Range high", Money(s.RangeHigh))
	row("Range low", Money(s.RangeLow))
	row("Average closing price", Money(s.AvgClose))
	row("Average volume", Shares(s.AvgVolume))
	row("Change over range", Percent(s.RangeChangePct))
	if s.RSIAvailable {
		row("RSI(14)", fmt.Sprintf("%.1f", s.RSI))
	}

	if len(s.DailyChangesPct) > 0 {
		b.WriteString("\n## Sessions\n\n")
		header := "| Date | Daily change | 5D MA |"
		sep := "|---|---:|---:|"
		if s.InvestmentCapital > 0 {
			header += fmt.Sprintf(" Value of %s |", Money(s.InvestmentCapital))
			sep += "---:|"
		}
		b.WriteString(header + "\n" + sep + "\n")
		for i, pct := range s.DailyChangesPct {
			var date time.Time
			if i < len(s.Dates) {
				date = s.Dates[i]
			}
			ma := "n/a"
			if i < len(s.MovingAverage) && !math.IsNaN(s.MovingAverage[i]) {
				ma = Money(s.MovingAverage[i])
			}
			change := Percent(pct)
			if i == 0 {
				change = "n/a"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |", date.Format(model.DateFormat), change, ma)
			if s.InvestmentCapital > 0 && i < len(s.InvestmentGrowth) {
				fmt.Fprintf(&b, " %s |", Money(s.InvestmentGrowth[i]))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Metrics renders rolling metrics over an analysis window.
func Metrics(m *model.Metrics, window string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s rolling metrics (%s)\n\n", m.Symbol, window)
	fmt.Fprintf(&b, "%s to %s, SMA %s\n\n",
		m.Start.Format(model.DateFormat), m.End.Format(model.DateFormat), Money(m.SMA))
	b.WriteString("| Date | High-low range | Cumulative return |\n|---|---:|---:|\n")
	for i, d := range m.Dates {
		fmt.Fprintf(&b, "| %s | %s | %s |\n",
			d.Format(model.DateFormat), Money(m.HighLow[i]), Percent(m.CumulativeReturns[i]*100))
	}
	return b.String()
}

// Quote is a live price of one symbol.
type Quote struct {
	Symbol string
	Price  float64
}

// Quotes renders live prices.
func Quotes(qs []Quote) string {
	var b strings.Builder
	b.WriteString("| Symbol | Live price |\n|---|---:|\n")
	for _, q := range qs {
		fmt.Fprintf(&b, "| %s | %s |\n", q.Symbol, Money(q.Price))
	}
	return b.String()
}

// Run renders the per-symbol outcomes of a batch run.
func Run(title string, s *batch.Summary) string {
	var b strings.Builder
	ok := len(s.Outcomes) - len(s.Failed())
	fmt.Fprintf(&b, "## %s\n\n%d of %d symbols succeeded\n\n", title, ok, len(s.Outcomes))
	b.WriteString("| Symbol | Status | Time |\n|---|---|---:|\n")
	for _, o := range s.Outcomes {
		status := "ok"
		if !o.OK() {
			status = o.Reason
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", o.Symbol, status, o.Duration.Round(time.Millisecond))
	}
	return b.String()
}

// Render formats markdown for a terminal. style is a glamour style name
// such as "dark", "light" or "notty"; width wraps lines when positive.
func Render(markdown, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle(style)}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
