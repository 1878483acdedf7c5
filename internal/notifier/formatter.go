package notifier

import (
	"fmt"
	"strings"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/alert"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/calendar"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// Subject returns the subject line of the daily alert message.
func Subject(d *alert.Daily) string {
	return "Stock Market Update - " + d.Date.Format("02 Jan 2006")
}

// FormatAlert renders one decided alert state as a single line.
func FormatAlert(st *model.AlertState) string {
	if !st.Fired {
		return fmt.Sprintf("ALERT: %s does not meet threshold requirement.", st.Symbol)
	}
	return fmt.Sprintf("ALERT: %s %s %+.2f%% today!", st.Symbol, st.Direction(), st.PercentChange)
}

// FormatDaily renders the body of the daily alert message. Before the close
// only the market status is reported. Symbols whose evaluation aborted are
// left out.
func FormatDaily(d *alert.Daily) string {
	switch d.Status {
	case calendar.StatusClosedToday:
		return "Market closed today (holiday/weekend)."
	case calendar.StatusPreOpen:
		return "Market not yet open, waiting to open."
	case calendar.StatusOpen:
		return "Market is open, wait until close for daily % change."
	}

	var lines []string
	for _, st := range d.States {
		if st == nil || st.Phase != model.PhaseDecided {
			continue
		}
		lines = append(lines, FormatAlert(st))
	}
	if len(lines) == 0 {
		lines = append(lines, "No valid alerts generated today.")
	}

	var b strings.Builder
	b.WriteString("Daily Stock Alerts:\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	if d.Summary != nil {
		if failed := d.Summary.Failed(); len(failed) > 0 {
			b.WriteString("\n\nSkipped:\n")
			for _, o := range failed {
				fmt.Fprintf(&b, "  %s: %s\n", o.Symbol, o.Reason)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewDailyMessage builds the message for a daily alert run.
func NewDailyMessage(d *alert.Daily, to string) Message {
	return Message{To: to, Subject: Subject(d), Body: FormatDaily(d)}
}
