package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockagent/stockagent/internal/users"
)

func (a *app) userService(ctx context.Context, c *connections) (*users.Service, error) {
	pool, err := a.postgres(ctx, c)
	if err != nil {
		return nil, err
	}
	return users.NewService(users.NewRepository(pool), a.cfg.Quota.DailyLimit), nil
}

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and maintain user records and daily quotas",
	}

	var p users.Profile
	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Create the user if absent, otherwise refresh the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &connections{}
			defer c.close()
			svc, err := a.userService(cmd.Context(), c)
			if err != nil {
				return err
			}

			u, created, err := svc.GetOrCreate(cmd.Context(), p)
			if err != nil {
				return err
			}
			if !created {
				if err := svc.UpdateProfile(cmd.Context(), p); err != nil {
					return err
				}
				a.out.Info("Updated %s (%s)", u.UserID, p.Email)
				return nil
			}
			a.out.Success("Created %s (%s)", u.UserID, u.Email)
			return nil
		},
	}
	ensure.Flags().StringVar(&p.UserID, "user-id", "", "auth provider subject")
	ensure.Flags().StringVar(&p.Email, "email", "", "email address")
	ensure.Flags().StringVar(&p.Name, "name", "", "display name")
	ensure.Flags().StringVar(&p.AvatarURL, "avatar", "", "avatar URL")
	_ = ensure.MarkFlagRequired("user-id")
	_ = ensure.MarkFlagRequired("email")

	resetQuota := &cobra.Command{
		Use:   "reset-quota <user-id>",
		Short: "Zero the daily counter of one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &connections{}
			defer c.close()
			svc, err := a.userService(cmd.Context(), c)
			if err != nil {
				return err
			}
			if err := svc.ResetDaily(cmd.Context(), args[0], time.Now()); err != nil {
				return err
			}
			a.out.Success("Quota reset for %s", args[0])
			return nil
		},
	}

	resetStale := &cobra.Command{
		Use:   "reset-stale",
		Short: "Zero every counter last used before today (UTC)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &connections{}
			defer c.close()
			svc, err := a.userService(cmd.Context(), c)
			if err != nil {
				return err
			}
			n, err := svc.ResetStale(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			a.out.Success("Reset %d stale counters", n)
			return nil
		},
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List users with their quota usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &connections{}
			defer c.close()
			svc, err := a.userService(cmd.Context(), c)
			if err != nil {
				return err
			}
			list, err := svc.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			now := time.Now()
			a.out.Plain("%-36s %-32s %5s %s\n", "USER ID", "EMAIL", "USED", "LAST QUERY")
			for _, u := range list {
				usage, err := svc.Usage(cmd.Context(), u.UserID, now)
				if err != nil {
					return err
				}
				last := "-"
				if u.LastQueryDate != nil {
					last = u.LastQueryDate.UTC().Format(time.RFC3339)
				}
				a.out.Plain("%-36s %-32s %2d/%-2d %s\n", u.UserID, u.Email, usage.QueriesUsedToday, usage.DailyLimit, last)
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	list.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	cmd.AddCommand(ensure, resetQuota, resetStale, list)
	return cmd
}
