package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"medicover-assist/lib/notify"
	"medicover-assist/lib/slotwindow"
	"time"

	"github.com/spf13/cobra"
)

var errIncompleteFilter = errors.New("region, specialization, clinic and doctor must all be set")

var slotsDays *int

func init() {
	slotsDays = slotsCmd.Flags().Int("days", 0, "Length of the window of days to look for slots in, overrides MEDICOVER_DAYS.")
	rootCmd.AddCommand(slotsCmd)
}

// overrideDays replaces the configured window length when days is set, it is
// validated like MEDICOVER_DAYS.
func overrideDays(days int) func(*Config) {
	return func(cfg *Config) {
		if days != 0 {
			cfg.Days = days
		}
	}
}

var slotsCmd = &cobra.Command{
	Use:   "slots [--days <n>]",
	Short: "Looks for free slots in the next few days and notifies about them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd.Context(), overrideDays(*slotsDays))
		if err != nil {
			return err
		}
		defer s.close()

		days := s.config.Days
		out := cmd.OutOrStdout()
		filter := s.config.Filter()

		return s.loggedIn(cmd.Context(), func(ctx context.Context) error {
			if !filter.Complete() {
				fmt.Fprintln(out, "Application lacks configuration! Please set all environment variables:")
				fmt.Fprintln(out)
				choices, err := s.client.VisitParameters(ctx, filter)
				if err != nil {
					return err
				}
				renderChoices(out, choices)
				return errIncompleteFilter
			}

			slots, err := s.client.FreeSlotItems(ctx, filter, time.Time{})
			if err != nil {
				return err
			}
			window := slotwindow.Next(s.time.Now(), days)
			lines, err := slotwindow.DescribeAll(window.Select(slots))
			if err != nil {
				return err
			}
			slog.Info(
				"searched free slots",
				"total", len(slots),
				"in_window", len(lines),
				"start", window.Start,
				"end", window.End,
			)

			return s.notifier(out).Notify(ctx, notify.Alert{
				Title: "Medicover",
				Lines: lines,
			})
		})
	},
}
