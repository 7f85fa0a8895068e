package cli

import (
	"fmt"
	"time"

	"callbridge/internal/metricfmt"
	"callbridge/internal/phone"
	"callbridge/internal/schedule"

	"github.com/spf13/cobra"
)

func newNormalizePhoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize-phone <phone>",
		Short: "Normalize a phone number to +<digits>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := phone.Normalize(args[0])
			if !ok {
				return fmt.Errorf("invalid phone number %q", args[0])
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newFormatMetricCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format-metric <value>",
		Short: "Format a CRM metric value the way the voice agent sees it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), metricfmt.Format(args[0]))
			return nil
		},
	}
}

func newBusinessHoursCmd() *cobra.Command {
	var (
		phoneNumber string
		hours       string
		at          string
		now         string
	)
	cmd := &cobra.Command{
		Use:   "business-hours",
		Short: "Check whether a phone number is inside business hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := schedule.ParseWindow(hours)
			if err != nil {
				return err
			}
			desired, err := schedule.ParseClock(at)
			if err != nil {
				return err
			}
			t := time.Now()
			if now != "" {
				if t, err = time.Parse(time.RFC3339, now); err != nil {
					return fmt.Errorf("--now: %w", err)
				}
			}
			av, err := schedule.CheckPhone(t, phoneNumber, w, desired)
			if err != nil {
				return err
			}
			return printJSON(cmd, av)
		},
	}
	cmd.Flags().StringVar(&phoneNumber, "phone", "", "Phone number to check")
	cmd.Flags().StringVar(&hours, "hours", schedule.DefaultWindow.String(), "Business hours window, e.g. 10-16")
	cmd.Flags().StringVar(&at, "at", "15", "Desired local call time, H or H:MM")
	cmd.Flags().StringVar(&now, "now", "", "Evaluate at this RFC3339 instant instead of the current time")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}
