package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"light_control/internal/models"
	"light_control/internal/service"

	"github.com/spf13/cobra"
)

// consoleView prints status messages and the board clock. Relay and schedule
// changes are printed by the commands once they finish.
type consoleView struct {
	service.NopView
	out io.Writer
}

func (v consoleView) OnStatusMessage(msg string) {
	fmt.Fprintln(v.out, msg)
}

func (v consoleView) OnTimeUpdated(t string) {
	fmt.Fprintf(v.out, "Time: %s\n", t)
}

// withDispatcher builds a short-lived service without poller or bridge and
// runs fn against its dispatcher.
func withDispatcher(cmd *cobra.Command, fn func(ctx context.Context, d *service.Dispatcher) error) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	journal, closeJournal := openJournal(cfg, log)
	defer closeJournal()

	api, err := newDeviceAPI(cfg, log)
	if err != nil {
		return err
	}
	services := service.NewService(api, consoleView{out: cmd.OutOrStdout()}, service.Options{
		Journal: journal,
		Log:     log.Named("core"),
	})
	defer services.Close()

	return fn(cmd.Context(), services.Dispatcher())
}

func printRelays(w io.Writer, s models.RelaySnapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RELAY\tSTATE")
	for _, r := range s {
		state := "OFF"
		if r.On {
			state = "ON"
		}
		fmt.Fprintf(tw, "%d\t%s\n", r.ID, state)
	}
	_ = tw.Flush()
}

func printSchedules(w io.Writer, entries []models.ScheduleEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No schedules")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRELAY\tON\tOFF\tSTATUS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", e.ID, e.Relay, e.OnTime(), e.OffTime(), e.Status())
	}
	_ = tw.Flush()
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the board clock and relay states",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *service.Dispatcher) error {
			// The clock is informational; a failure is already logged.
			_ = d.RefreshTime(ctx)
			if err := d.RefreshStatus(ctx); err != nil {
				return err
			}
			printRelays(cmd.OutOrStdout(), d.RelaySnapshot())
			return nil
		})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle RELAY",
	Short: "Toggle one relay (1-4)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseRelayID(args[0])
		if err != nil {
			return err
		}
		return withDispatcher(cmd, func(ctx context.Context, d *service.Dispatcher) error {
			if err := d.Toggle(ctx, id); err != nil {
				return err
			}
			// The board does not answer with the new state.
			if err := d.RefreshStatus(ctx); err != nil {
				return err
			}
			printRelays(cmd.OutOrStdout(), d.RelaySnapshot())
			return nil
		})
	},
}

var schedulesCmd = &cobra.Command{
	Use:   "schedules",
	Short: "List, add and delete board schedules",
}

var schedulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules stored on the board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *service.Dispatcher) error {
			if err := d.FetchSchedules(ctx); err != nil {
				return err
			}
			printSchedules(cmd.OutOrStdout(), d.ScheduleSnapshot())
			return nil
		})
	},
}

var schedulesAddCmd = &cobra.Command{
	Use:   "add RELAY ON OFF",
	Short: "Add a schedule, times as HH:MM",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid relay %q", args[0])
		}
		draft := models.ScheduleDraft{Relay: models.RelayID(n), OnTime: args[1], OffTime: args[2]}
		return withDispatcher(cmd, func(ctx context.Context, d *service.Dispatcher) error {
			if err := d.AddSchedule(ctx, draft); err != nil {
				return err
			}
			printSchedules(cmd.OutOrStdout(), d.ScheduleSnapshot())
			return nil
		})
	},
}

var schedulesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a schedule by board id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid schedule id %q", args[0])
		}
		return withDispatcher(cmd, func(ctx context.Context, d *service.Dispatcher) error {
			if err := d.DeleteSchedule(ctx, id); err != nil {
				return err
			}
			printSchedules(cmd.OutOrStdout(), d.ScheduleSnapshot())
			return nil
		})
	},
}

func init() {
	schedulesCmd.AddCommand(schedulesListCmd)
	schedulesCmd.AddCommand(schedulesAddCmd)
	schedulesCmd.AddCommand(schedulesDeleteCmd)
}
