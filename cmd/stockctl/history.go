package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockagent/stockagent/internal/history"
	"github.com/stockagent/stockagent/internal/quota"
)

func (a *app) historyService(ctx context.Context, c *connections) (*history.Service, error) {
	userSvc, err := a.userService(ctx, c)
	if err != nil {
		return nil, err
	}

	var limiter history.BurstLimiter
	if rdb := a.optionalRedis(ctx, c); rdb != nil {
		limiter = quota.NewLimiter(rdb, "stockagent:burst:")
	}

	var publisher history.EventPublisher
	if pub := a.publisher(ctx, c); pub != nil {
		publisher = pub
	}

	burst := history.BurstPolicy{Max: a.cfg.Quota.BurstPerMinute, Window: time.Minute}
	return history.NewService(history.NewRepository(c.pool), userSvc, limiter, burst, publisher), nil
}

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Append to and read the chat history log",
	}

	var entry history.Entry
	appendCmd := &cobra.Command{
		Use:   "append",
		Short: "Record one interaction, consuming a daily query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &connections{}
			defer c.close()
			svc, err := a.historyService(cmd.Context(), c)
			if err != nil {
				return err
			}
			receipt, err := svc.Record(cmd.Context(), entry, time.Now())
			if err != nil {
				return err
			}
			a.out.Success("Recorded %s, %d queries remaining today", receipt.Record.MessageID, receipt.QueriesRemaining)
			return nil
		},
	}
	appendCmd.Flags().StringVar(&entry.UserID, "user-id", "", "owner of the interaction")
	appendCmd.Flags().StringVar(&entry.Message, "message", "", "user message")
	appendCmd.Flags().StringVar(&entry.Response, "response", "", "agent response")
	_ = appendCmd.MarkFlagRequired("user-id")
	_ = appendCmd.MarkFlagRequired("message")
	_ = appendCmd.MarkFlagRequired("response")

	var limit int
	listCmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "Show the newest interactions as seen by that identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &connections{}
			defer c.close()
			svc, err := a.historyService(cmd.Context(), c)
			if err != nil {
				return err
			}
			records, err := svc.List(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				a.out.Info("No history for %s", args[0])
				return nil
			}
			for _, r := range records {
				a.out.Plain("%s  %s\n  > %s\n  < %s\n", r.CreatedAt.UTC().Format(time.RFC3339), r.MessageID, r.Message, r.Response)
			}
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")

	cmd.AddCommand(appendCmd, listCmd)
	return cmd
}
