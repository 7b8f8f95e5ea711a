package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/cmd/cmdutil"
	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/provider"
	"github.com/mpapenbr/racedash/pkg/selector"
	"github.com/mpapenbr/racedash/pkg/store"
	"github.com/mpapenbr/racedash/pkg/story"
)

func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "manages the on-disk session cache",
	}
	cmd.AddCommand(newClearCmd(), newWarmCmd())
	return cmd
}

func newClearCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "removes the session of the story from the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cmdutil.App) error {
				var key *model.SessionKey
				if !all {
					key = &app.Key
				}
				n, err := Clear(ctx, app.Store, key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d session(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove all cached sessions")
	return cmd
}

func newWarmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "loads the session and the telemetry the dashboard needs into the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cmdutil.App) error {
				laps, err := Warm(ctx, app.Provider, app.Story)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cached %s with telemetry of %d laps\n",
					app.Key, laps)
				return nil
			})
		},
	}
}

func withApp(cmd *cobra.Command, f func(ctx context.Context, app *cmdutil.App) error) error {
	if _, err := cmdutil.SetupLogger(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := cmdutil.NewApp(ctx)
	if err != nil {
		return err
	}
	return errors.Join(f(ctx, app), app.Close())
}

// Clear removes the session key from s, all sessions if key is nil.
func Clear(ctx context.Context, s store.Store, key *model.SessionKey) (int, error) {
	n, err := s.Clear(ctx, key)
	if err != nil {
		return 0, err
	}
	if key == nil {
		log.Info("cache cleared", log.Int("sessions", n))
	} else {
		log.Info("session removed from cache", log.String("session", key.String()),
			log.Int("sessions", n))
	}
	return n, nil
}

// Warm loads the session of st through p and fetches the telemetry of the
// fastest and the decisive lap of both drivers. It returns the number of
// laps whose telemetry is available.
func Warm(ctx context.Context, p provider.Provider, st *story.Story) (int, error) {
	key, err := st.Key()
	if err != nil {
		return 0, err
	}
	sess, err := p.Load(ctx, key)
	if err != nil {
		return 0, provider.NewDataLoadError(key, err)
	}
	laps := sess.Laps()
	fetched := 0
	for _, d := range st.Drivers {
		wanted := []model.Lap{}
		if l, err := selector.FastestLapRecord(laps, d.Code); err == nil {
			wanted = append(wanted, l)
		} else {
			log.Warn("no fastest lap", log.String("driver", d.Code), log.ErrorField(err))
		}
		if l, err := selector.LapRecord(laps, d.Code, st.DecisiveLap); err == nil {
			wanted = append(wanted, l)
		} else {
			log.Warn("no decisive lap", log.String("driver", d.Code), log.ErrorField(err))
		}
		for _, l := range wanted {
			if _, err := sess.Telemetry(ctx, l); err != nil {
				log.Warn("telemetry not available",
					log.String("driver", l.Driver),
					log.Int("lap", l.LapNumber),
					log.ErrorField(err))
				continue
			}
			fetched++
		}
	}
	return fetched, nil
}
