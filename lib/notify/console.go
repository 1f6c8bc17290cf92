package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Console renders the alert as a table, an empty alert is still printed
// so that a run without results is visible.
type Console struct {
	Out io.Writer
}

func (c Console) Notify(_ context.Context, alert Alert) error {
	t := table.NewWriter()
	t.SetOutputMirror(c.Out)
	t.SetTitle(alert.Title)
	t.AppendHeader(table.Row{"#", "Slot"})
	for i, line := range alert.Lines {
		t.AppendRow(table.Row{i + 1, line})
	}
	if len(alert.Lines) == 0 {
		t.SetCaption("nothing found")
	} else {
		t.SetCaption(fmt.Sprintf("%d found", len(alert.Lines)))
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
