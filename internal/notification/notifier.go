// Package notification delivers run-outcome alerts for the feature job to
// external channels.
package notification

import (
	"context"
	"fmt"
	"log"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Symbol  string     `json:"symbol,omitempty"`
	RunID   string     `json:"run_id,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the standard logger. Used when no webhook is
// configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// RunOutcome summarizes one feature run for alerting.
type RunOutcome struct {
	Symbol        string
	RunID         string
	Err           error
	RowsIn        int
	RowsRetained  int
	OptionsNoData bool
}

// Alerts returns the alerts a run outcome warrants, most severe first. A
// clean run yields none.
func (o RunOutcome) Alerts() []Alert {
	if o.Err != nil {
		return []Alert{o.alert(AlertCritical, "feature run failed", o.Err.Error())}
	}
	var alerts []Alert
	if o.RowsRetained == 0 {
		alerts = append(alerts, o.alert(AlertWarning, "no feature rows",
			fmt.Sprintf("%d bars in, none survived warm-up trimming", o.RowsIn)))
	}
	if o.OptionsNoData {
		alerts = append(alerts, o.alert(AlertWarning, "options chain empty",
			"no option contracts available for analysis"))
	}
	return alerts
}

func (o RunOutcome) alert(level AlertLevel, title, msg string) Alert {
	return Alert{Level: level, Title: title, Message: msg, Symbol: o.Symbol, RunID: o.RunID}
}

// Dispatch sends every alert of the outcome through n. Delivery failures are
// logged and do not stop the remaining alerts; the first error is returned.
func Dispatch(ctx context.Context, n Notifier, o RunOutcome) error {
	var first error
	for _, a := range o.Alerts() {
		if err := n.Send(ctx, a); err != nil {
			log.Printf("[notify] delivery failed for %q: %v", a.Title, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
