package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// CommandRunner runs an external program to completion.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Desktop shows a system notification, through osascript on macOS and
// notify-send everywhere else.
type Desktop struct {
	// GOOS defaults to runtime.GOOS.
	GOOS string
	// Run defaults to executing the command with os/exec.
	Run CommandRunner
}

func (d Desktop) Notify(ctx context.Context, alert Alert) error {
	if len(alert.Lines) == 0 {
		return nil
	}
	run := d.Run
	if run == nil {
		run = runCommand
	}
	goos := d.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	text := strings.Join(alert.Lines, "\n")
	if goos == "darwin" {
		script := fmt.Sprintf(
			"display notification %s with title %s",
			appleScriptString(text),
			appleScriptString(alert.Title),
		)
		return run(ctx, "osascript", "-e", script)
	}
	return run(ctx, "notify-send", alert.Title, text)
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func appleScriptString(s string) string {
	return `"` + appleScriptEscaper.Replace(s) + `"`
}
