package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var appointmentsOut *string

func init() {
	appointmentsOut = appointmentsCmd.Flags().String("out", "appointments.json", "The file to write the appointments to.")
	rootCmd.AddCommand(appointmentsCmd)
}

var appointmentsCmd = &cobra.Command{
	Use:   "appointments [--out <path/to/appointments.json>]",
	Short: "Writes every booked appointment of the account to a JSON file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		return s.loggedIn(cmd.Context(), func(ctx context.Context) error {
			appointments, err := s.client.Appointments(ctx)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(appointments, "", "    ")
			if err != nil {
				return err
			}
			err = os.WriteFile(*appointmentsOut, data, 0644)
			if err != nil {
				return err
			}
			slog.Info("wrote appointments", "count", len(appointments), "path", *appointmentsOut)
			return nil
		})
	},
}
