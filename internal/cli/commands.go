package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ChuLiYu/lunch-rotation/internal/calendar"
	"github.com/ChuLiYu/lunch-rotation/internal/roster"
	"github.com/ChuLiYu/lunch-rotation/internal/server"
	"github.com/ChuLiYu/lunch-rotation/pkg/types"
	"github.com/spf13/cobra"
)

const (
	defaultScheduleDays = server.DefaultScheduleDays
	defaultBlocks       = 3
	defaultHistory      = 20
)

// ============================================================================
// Queries: today, schedule, blocks, history
// ============================================================================

func buildTodayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "today [date]",
		Short: "Show who is on lunch duty",
		Long:  "Resolve the assignee for today, or for the given date (YYYY-MM-DD). Weekends move to Monday.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var date time.Time
			if len(args) == 1 {
				d, err := calendar.ParseISO(args[0])
				if err != nil {
					return err
				}
				date = calendar.NextBusinessDay(d)
			}
			if serverAddr != "" {
				return remoteToday(cmd, date)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if date.IsZero() {
				date = s.svc.Today()
			}
			who, err := s.svc.Resolve(date)
			if err != nil {
				return err
			}
			s.view.assignee(date, who, s.svc.Restaurants()[calendar.FormatISO(date)])
			return nil
		},
	}
	return cmd
}

func remoteToday(cmd *cobra.Command, date time.Time) error {
	r, err := openRemote(cmd)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := remoteContext()
	defer cancel()

	who, err := r.client.Resolve(ctx, date)
	if err != nil {
		return fmt.Errorf("remote resolve failed: %w", err)
	}
	if date.IsZero() {
		date = r.view.today
	}
	r.view.assignee(date, who, "")
	return nil
}

func buildScheduleCommand() *cobra.Command {
	var from string
	var days int

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the upcoming schedule",
		Long:  "Simulate the next business days, including manual overrides and carried-over turns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 || days > server.MaxScheduleDays {
				return fmt.Errorf("--days must be between 0 and %d, got %d", server.MaxScheduleDays, days)
			}
			var start time.Time
			if from != "" {
				d, err := calendar.ParseISO(from)
				if err != nil {
					return err
				}
				start = d
			}

			if serverAddr != "" {
				r, err := openRemote(cmd)
				if err != nil {
					return err
				}
				defer r.Close()

				ctx, cancel := remoteContext()
				defer cancel()
				entries, err := r.client.Schedule(ctx, start, days)
				if err != nil {
					return fmt.Errorf("remote schedule failed: %w", err)
				}
				r.view.schedule("", entries, nil)
				return nil
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if start.IsZero() {
				start = s.svc.Today()
			}
			entries, err := s.svc.Schedule(start, days)
			if err != nil {
				return err
			}
			s.view.schedule("", entries, s.svc.Restaurants())
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD), default today")
	cmd.Flags().IntVar(&days, "days", defaultScheduleDays, "Number of business days")

	return cmd
}

func buildBlocksCommand() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Show full-roster blocks",
		Long:  "Show consecutive blocks of one business day per person, starting at the beginning of today's cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			blocks, err := s.svc.Blocks(count)
			if err != nil {
				return err
			}
			s.view.blocks(blocks, s.svc.Restaurants())
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "blocks", defaultBlocks, "Number of blocks to show")

	return cmd
}

func buildHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent actions",
		Long:  "Display the most recent entries of the action journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			events, err := s.svc.History(limit)
			if err != nil {
				return err
			}
			s.view.history(events)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistory, "Maximum number of entries")

	return cmd
}

// ============================================================================
// Rotation actions: pass, skip, exchange
// ============================================================================

func buildPassCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pass",
		Short: "Today's person passes the turn",
		Long:  "Shift the rotation by one: today's person passes and everyone after moves one business day earlier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverAddr != "" {
				r, err := openRemote(cmd)
				if err != nil {
					return err
				}
				defer r.Close()

				ctx, cancel := remoteContext()
				defer cancel()
				who, err := r.client.PassTurn(ctx)
				if err != nil {
					return fmt.Errorf("remote pass failed: %w", err)
				}
				r.view.printf(msgPassed, who)
				return nil
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			who, err := s.svc.PassTurn()
			if err := s.report(err); err != nil {
				return err
			}
			s.view.printf(msgPassed, who)
			return nil
		},
	}
}

func buildSkipCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Nobody has lunch duty today",
		Long:  "Mark today as 'nobody' and move today's person to the next business day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverAddr != "" {
				r, err := openRemote(cmd)
				if err != nil {
					return err
				}
				defer r.Close()

				ctx, cancel := remoteContext()
				defer cancel()
				who, err := r.client.SkipDay(ctx)
				if err != nil {
					return fmt.Errorf("remote skip failed: %w", err)
				}
				r.view.printf(msgSkipped, who)
				return nil
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			who, err := s.svc.SkipDay()
			if err := s.report(err); err != nil {
				return err
			}
			s.view.printf(msgSkipped, who)
			return nil
		},
	}
}

func buildExchangeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange",
		Short: "Exchange today with the next business day",
		Long:  "Swap the roster positions of today's and the next business day's people; the swap carries into later cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.report(s.svc.Exchange()); err != nil {
				return err
			}

			today := s.svc.Today()
			a, err := s.svc.Resolve(today)
			if err != nil {
				return err
			}
			b, err := s.svc.Resolve(calendar.FollowingBusinessDay(today))
			if err != nil {
				return err
			}
			s.view.printf(msgExchanged, a, b)
			return nil
		},
	}
}

// ============================================================================
// Overrides
// ============================================================================

func buildOverrideCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage manual assignments",
	}

	setCmd := &cobra.Command{
		Use:   "set <date> <person|nobody>",
		Short: "Assign a date to a person (or nobody)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := calendar.ParseISO(args[0])
			if err != nil {
				return err
			}
			date = calendar.NextBusinessDay(date)

			if serverAddr != "" {
				r, err := openRemote(cmd)
				if err != nil {
					return err
				}
				defer r.Close()

				ctx, cancel := remoteContext()
				defer cancel()
				if err := r.client.SetOverride(ctx, date, args[1]); err != nil {
					return fmt.Errorf("remote override failed: %w", err)
				}
				r.view.printf(msgOverrideSet, calendar.Label(date, r.view.tag), args[1])
				return nil
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.report(s.svc.SetOverride(date, args[1])); err != nil {
				return err
			}
			s.view.printf(msgOverrideSet, calendar.Label(date, s.view.tag), s.svc.State().Overrides[calendar.FormatISO(date)])
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <date>",
		Short: "Remove the manual assignment of a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := calendar.ParseISO(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			date = calendar.NextBusinessDay(date)
			removed, err := s.svc.ClearOverride(date)
			if err := s.report(err); err != nil {
				return err
			}
			if removed {
				s.view.printf(msgOverrideCleared, calendar.Label(date, s.view.tag))
			} else {
				s.view.printf(msgOverrideNone, calendar.Label(date, s.view.tag))
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List upcoming manual assignments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			s.view.overrides(s.svc.State().Overrides)
			return nil
		},
	}

	cmd.AddCommand(setCmd, clearCmd, listCmd)
	return cmd
}

// ============================================================================
// Preferences and restaurants
// ============================================================================

func buildPreferCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prefer <name> [weekdays...]",
		Short: "Set the weekdays a person prefers to avoid",
		Long: `Set the weekdays a person prefers to avoid (0=Monday ... 4=Friday, or names such as
"tue" / "terça"). Without weekdays the preference is cleared.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekdays := make([]int, 0, len(args)-1)
			for _, arg := range args[1:] {
				wd, err := calendar.ParseWeekday(arg)
				if err != nil {
					return err
				}
				weekdays = append(weekdays, wd)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.report(s.svc.SetPreferences(args[0], weekdays)); err != nil {
				return err
			}

			state := s.svc.State()
			_, name := roster.Find(state.Roster, args[0])
			if days := state.Preferences[name]; len(days) > 0 {
				s.view.printf(msgPreferencesSet, name, s.view.weekdays(days))
			} else {
				s.view.printf(msgPreferencesClear, name)
			}
			return nil
		},
	}
}

func buildRestaurantCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restaurant <date> [name...]",
		Short: "Note the restaurant for a date",
		Long:  "Record where lunch is on the given date. Without a name the note is removed.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := calendar.ParseISO(args[0])
			if err != nil {
				return err
			}
			name := strings.TrimSpace(strings.Join(args[1:], " "))

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			date = calendar.NextBusinessDay(date)
			if err := s.report(s.svc.SetRestaurant(date, name)); err != nil {
				return err
			}
			if name == "" {
				s.view.printf(msgRestaurantClear, calendar.Label(date, s.view.tag))
			} else {
				s.view.printf(msgRestaurantSet, calendar.Label(date, s.view.tag), name)
			}
			return nil
		},
	}
}

// ============================================================================
// Roster
// ============================================================================

func buildRosterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Show or edit the roster",
		Long:  "Structural roster edits realign the rotation so the anchor person keeps the anchor date",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the roster in rotation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			s.view.roster(s.svc.State())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a person at the end of the roster",
		Args:  cobra.ExactArgs(1),
		RunE: rosterAction(func(s *session, args []string) error {
			if err := s.report(s.svc.AddPerson(args[0])); err != nil {
				return err
			}
			s.view.printf(msgRosterAdded, strings.TrimSpace(args[0]))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a person from the roster",
		Args:  cobra.ExactArgs(1),
		RunE: rosterAction(func(s *session, args []string) error {
			_, name := roster.Find(s.svc.State().Roster, args[0])
			if err := s.report(s.svc.RemovePerson(args[0])); err != nil {
				return err
			}
			s.view.printf(msgRosterRemoved, name)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "move <name> <position>",
		Short: "Move a person to a position (1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: rosterAction(func(s *session, args []string) error {
			pos, err := strconv.Atoi(args[1])
			if err != nil || pos < 1 {
				return fmt.Errorf("position must be a positive number, got %q", args[1])
			}
			if err := s.report(s.svc.MovePerson(args[0], pos-1)); err != nil {
				return err
			}
			state := s.svc.State()
			i, name := roster.Find(state.Roster, args[0])
			s.view.printf(msgRosterMoved, name, i+1)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "swap <a> <b>",
		Short: "Swap the positions of two people",
		Args:  cobra.ExactArgs(2),
		RunE: rosterAction(func(s *session, args []string) error {
			if err := s.report(s.svc.SwapPeople(args[0], args[1])); err != nil {
				return err
			}
			state := s.svc.State()
			_, a := roster.Find(state.Roster, args[0])
			_, b := roster.Find(state.Roster, args[1])
			s.view.printf(msgRosterSwapped, a, b)
			return nil
		}),
	})

	return cmd
}

func rosterAction(fn func(s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(s, args)
	}
}

// assignee 印出某日負責人與餐廳
func (v *view) assignee(date time.Time, who, restaurant string) {
	label := calendar.Label(date, v.tag)
	if who == types.Nobody {
		v.printf(msgNobodyOn, label)
	} else {
		v.printf(msgLunchOn, label, who)
	}
	if restaurant != "" {
		v.printf(msgRestaurant, restaurant)
	}
}
