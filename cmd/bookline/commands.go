package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bookline/bookline/internal/app"
	bookingApp "github.com/bookline/bookline/internal/booking/application"
	bookingDomain "github.com/bookline/bookline/internal/booking/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
)

const dayLayout = "2006-01-02"

// errSchedulingUnavailable is returned when a scheduling command runs
// against a SQLite database, which only carries the automation engine.
var errSchedulingUnavailable = errors.New("scheduling requires a PostgreSQL database (set DATABASE_URL)")

func parseWorkspace(cmd *cobra.Command) (uuid.UUID, error) {
	raw, err := cmd.Flags().GetString("workspace")
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid workspace id %q: %w", raw, err)
	}
	return id, nil
}

func newAvailabilityCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Query bookable slots and dates",
	}
	cmd.PersistentFlags().String("workspace", "", "workspace id")
	_ = cmd.MarkPersistentFlagRequired("workspace")

	slots := &cobra.Command{
		Use:   "slots",
		Short: "List candidate slots for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cmdCtx.open(cmd.Context())
			if err != nil {
				return err
			}
			if container.AvailabilityIndex == nil {
				return errSchedulingUnavailable
			}
			workspaceID, err := parseWorkspace(cmd)
			if err != nil {
				return err
			}
			bookingType, _ := cmd.Flags().GetString("type")
			dayFlag, _ := cmd.Flags().GetString("day")
			day, err := time.Parse(dayLayout, dayFlag)
			if err != nil {
				return fmt.Errorf("invalid day %q: %w", dayFlag, err)
			}

			candidates, err := container.AvailabilityIndex.SlotsForDay(cmd.Context(), workspaceID, bookingType, day)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no availability")
				return nil
			}
			for _, c := range candidates {
				staff := "any"
				if c.StaffID != nil {
					staff = c.StaffID.String()
				}
				state := "free"
				if c.Occupied {
					state = "occupied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s - %s  staff=%s  %s\n",
					c.Range.Start.Format(time.RFC3339), c.Range.End.Format(time.RFC3339), staff, state)
			}
			return nil
		},
	}
	slots.Flags().String("day", time.Now().UTC().Format(dayLayout), "day to query (YYYY-MM-DD)")
	slots.Flags().String("type", "", "booking type")
	_ = slots.MarkFlagRequired("type")

	dates := &cobra.Command{
		Use:   "dates",
		Short: "List dates with at least one free slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cmdCtx.open(cmd.Context())
			if err != nil {
				return err
			}
			if container.AvailabilityIndex == nil {
				return errSchedulingUnavailable
			}
			workspaceID, err := parseWorkspace(cmd)
			if err != nil {
				return err
			}
			bookingType, _ := cmd.Flags().GetString("type")
			fromFlag, _ := cmd.Flags().GetString("from")
			toFlag, _ := cmd.Flags().GetString("to")

			from, err := time.Parse(dayLayout, fromFlag)
			if err != nil {
				return fmt.Errorf("invalid from %q: %w", fromFlag, err)
			}
			to, err := time.Parse(dayLayout, toFlag)
			if err != nil {
				return fmt.Errorf("invalid to %q: %w", toFlag, err)
			}

			found, err := container.AvailabilityIndex.DatesWithAvailability(cmd.Context(), workspaceID, bookingType, from, to)
			if err != nil {
				return err
			}
			for _, d := range found {
				fmt.Fprintln(cmd.OutOrStdout(), d.Format(dayLayout))
			}
			return nil
		},
	}
	now := time.Now().UTC()
	dates.Flags().String("from", now.Format(dayLayout), "first day (YYYY-MM-DD)")
	dates.Flags().String("to", now.AddDate(0, 0, 30).Format(dayLayout), "last day (YYYY-MM-DD)")
	dates.Flags().String("type", "", "booking type")
	_ = dates.MarkFlagRequired("type")

	addRule := &cobra.Command{
		Use:   "add-rule",
		Short: "Define a recurring weekly opening",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cmdCtx.open(cmd.Context())
			if err != nil {
				return err
			}
			if container.ScheduleAdmin == nil {
				return errSchedulingUnavailable
			}
			workspaceID, err := parseWorkspace(cmd)
			if err != nil {
				return err
			}
			bookingType, _ := cmd.Flags().GetString("type")
			dayFlag, _ := cmd.Flags().GetString("weekday")
			startMinute, _ := cmd.Flags().GetInt("start-minute")
			endMinute, _ := cmd.Flags().GetInt("end-minute")
			staffID, err := parseStaffFlag(cmd)
			if err != nil {
				return err
			}

			weekday, err := parseWeekday(dayFlag)
			if err != nil {
				return err
			}

			rule, err := container.ScheduleAdmin.DefineWeeklyRule(cmd.Context(),
				workspaceID, staffID, bookingType, weekday, startMinute, endMinute)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rule %s  %s %02d:%02d-%02d:%02d\n",
				rule.ID(), rule.DayOfWeek(),
				rule.StartMinute()/60, rule.StartMinute()%60,
				rule.EndMinute()/60, rule.EndMinute()%60)
			return nil
		},
	}
	addRule.Flags().String("weekday", "", "day of week (e.g. monday)")
	addRule.Flags().String("type", "", "booking type")
	_ = addRule.MarkFlagRequired("type")
	addRule.Flags().Int("start-minute", 9*60, "window start, minutes from midnight UTC")
	addRule.Flags().Int("end-minute", 17*60, "window end, minutes from midnight UTC")
	addRule.Flags().String("staff", "", "staff id (optional)")
	_ = addRule.MarkFlagRequired("weekday")

	block := &cobra.Command{
		Use:   "block",
		Short: "Block a time range",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cmdCtx.open(cmd.Context())
			if err != nil {
				return err
			}
			if container.ScheduleAdmin == nil {
				return errSchedulingUnavailable
			}
			workspaceID, err := parseWorkspace(cmd)
			if err != nil {
				return err
			}
			startFlag, _ := cmd.Flags().GetString("start")
			endFlag, _ := cmd.Flags().GetString("end")
			reason, _ := cmd.Flags().GetString("reason")
			staffID, err := parseStaffFlag(cmd)
			if err != nil {
				return err
			}

			start, err := time.Parse(time.RFC3339, startFlag)
			if err != nil {
				return fmt.Errorf("invalid start %q: %w", startFlag, err)
			}
			end, err := time.Parse(time.RFC3339, endFlag)
			if err != nil {
				return fmt.Errorf("invalid end %q: %w", endFlag, err)
			}

			blocked, err := container.ScheduleAdmin.BlockRange(cmd.Context(), workspaceID, staffID, start, end, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "blocked %s  %s - %s\n",
				blocked.ID(), blocked.Range().Start.Format(time.RFC3339), blocked.Range().End.Format(time.RFC3339))
			return nil
		},
	}
	block.Flags().String("start", "", "start time (RFC 3339)")
	block.Flags().String("end", "", "end time (RFC 3339)")
	block.Flags().String("reason", "", "why the range is blocked")
	block.Flags().String("staff", "", "staff id (optional)")
	_ = block.MarkFlagRequired("start")
	_ = block.MarkFlagRequired("end")

	cmd.AddCommand(slots, dates, addRule, block)
	return cmd
}

func parseStaffFlag(cmd *cobra.Command) (*uuid.UUID, error) {
	raw, err := cmd.Flags().GetString("staff")
	if err != nil || raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid staff id %q: %w", raw, err)
	}
	return &id, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", name)
}

func newReserveCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve a time range",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cmdCtx.open(cmd.Context())
			if err != nil {
				return err
			}
			if container.ReservationService == nil {
				return errSchedulingUnavailable
			}
			workspaceID, err := parseWorkspace(cmd)
			if err != nil {
				return err
			}
			bookingType, _ := cmd.Flags().GetString("type")
			startFlag, _ := cmd.Flags().GetString("start")
			endFlag, _ := cmd.Flags().GetString("end")
			staffFlag, _ := cmd.Flags().GetString("staff")
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			phone, _ := cmd.Flags().GetString("phone")

			start, err := time.Parse(time.RFC3339, startFlag)
			if err != nil {
				return fmt.Errorf("invalid start %q: %w", startFlag, err)
			}
			end, err := time.Parse(time.RFC3339, endFlag)
			if err != nil {
				return fmt.Errorf("invalid end %q: %w", endFlag, err)
			}

			var staffID *uuid.UUID
			if staffFlag != "" {
				id, err := uuid.Parse(staffFlag)
				if err != nil {
					return fmt.Errorf("invalid staff id %q: %w", staffFlag, err)
				}
				staffID = &id
			}

			booking, err := container.ReservationService.Reserve(cmd.Context(), bookingApp.ReserveCommand{
				WorkspaceID: workspaceID,
				BookingType: bookingType,
				StaffID:     staffID,
				Start:       start,
				End:         end,
				Source:      bookingDomain.SourceInternal,
				Actor:       sharedDomain.SystemActor(),
				Contact: bookingApp.ContactDetails{
					Name:  name,
					Email: email,
					Phone: phone,
				},
			})
			if err != nil {
				return err
			}
			printBooking(cmd, booking)
			return nil
		},
	}
	cmd.Flags().String("workspace", "", "workspace id")
	cmd.Flags().String("type", "", "booking type")
	cmd.Flags().String("start", "", "start time (RFC 3339)")
	cmd.Flags().String("end", "", "end time (RFC 3339)")
	cmd.Flags().String("staff", "", "staff id (optional)")
	cmd.Flags().String("name", "", "contact name")
	cmd.Flags().String("email", "", "contact email")
	cmd.Flags().String("phone", "", "contact phone")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newBookingCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Move a booking through its lifecycle",
	}
	cmd.PersistentFlags().String("workspace", "", "workspace id")
	_ = cmd.MarkPersistentFlagRequired("workspace")

	transition := func(use, short string, apply func(*app.Container) lifecycleFn) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <booking-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				container, err := cmdCtx.open(cmd.Context())
				if err != nil {
					return err
				}
				if container.LifecycleService == nil {
					return errSchedulingUnavailable
				}
				workspaceID, err := parseWorkspace(cmd)
				if err != nil {
					return err
				}
				bookingID, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid booking id %q: %w", args[0], err)
				}
				booking, err := apply(container)(cmd.Context(), workspaceID, bookingID, sharedDomain.SystemActor())
				if err != nil {
					return err
				}
				printBooking(cmd, booking)
				return nil
			},
		}
	}

	cmd.AddCommand(
		transition("confirm", "Confirm a pending booking", func(c *app.Container) lifecycleFn {
			return c.LifecycleService.Confirm
		}),
		transition("cancel", "Cancel a booking", func(c *app.Container) lifecycleFn {
			return c.LifecycleService.Cancel
		}),
		transition("complete", "Mark a booking completed", func(c *app.Container) lifecycleFn {
			return c.LifecycleService.Complete
		}),
		transition("no-show", "Mark a booking as a no-show", func(c *app.Container) lifecycleFn {
			return c.LifecycleService.MarkNoShow
		}),
	)
	return cmd
}

type lifecycleFn func(ctx context.Context, workspaceID, bookingID uuid.UUID, actor sharedDomain.Actor) (*bookingDomain.Booking, error)

func newAlertsCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List recent workspace alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := cmdCtx.open(cmd.Context())
			if err != nil {
				return err
			}
			workspaceID, err := parseWorkspace(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			alerts, err := container.AlertRepo.FindByWorkspace(cmd.Context(), workspaceID, limit)
			if err != nil {
				return err
			}
			if len(alerts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no alerts")
				return nil
			}
			for _, a := range alerts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s]  %s\n",
					a.CreatedAt().Format(time.RFC3339), a.Kind(), a.Message())
			}
			return nil
		},
	}
	cmd.Flags().String("workspace", "", "workspace id")
	cmd.Flags().Int("limit", 20, "max alerts to list")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func printBooking(cmd *cobra.Command, b *bookingDomain.Booking) {
	staff := "any"
	if b.StaffID() != nil {
		staff = b.StaffID().String()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "booking %s  %s  %s - %s  staff=%s  status=%s\n",
		b.ID(), b.BookingType(),
		b.Range().Start.Format(time.RFC3339), b.Range().End.Format(time.RFC3339),
		staff, b.Status())
}
