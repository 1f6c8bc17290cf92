// Package notify delivers alerts about free slots to the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"medicover-assist/lib/telemetry"
)

const report_notify_multi = "multi.notify"

var tracer = telemetry.Tracer("medicover-assist/notify")

// Alert is a single notification, Lines are shown one per line under Title.
type Alert struct {
	Title string
	Lines []string
}

type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Multi delivers an alert to every notifier in order. A failing notifier
// does not stop the ones after it, all errors are joined.
type Multi struct {
	Notifiers []Notifier
	// Telemetry defaults to telemetry.SlogAPI.
	Telemetry telemetry.API
}

func (m Multi) Notify(ctx context.Context, alert Alert) error {
	tel := m.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	tel = telemetry.NewScopedAPI("notify", tel)

	var errs []error
	for i, n := range m.Notifiers {
		err := n.Notify(ctx, alert)
		if err != nil {
			tel.ReportBroken(report_notify_multi, err, fmt.Sprintf("%T", n))
			errs = append(errs, fmt.Errorf("notifier %d (%T): %w", i, n, err))
		}
	}
	return errors.Join(errs...)
}
