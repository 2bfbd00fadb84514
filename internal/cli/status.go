package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/di"
	"github.com/LeJamon/goickb/internal/log"
	"github.com/LeJamon/goickb/internal/rpc"
	"github.com/LeJamon/goickb/internal/storage/execlog"
)

var statusFollow bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the bot's balances and the market",
	Long: `Show the wallet balances, pending receipts and withdrawals, live orders
and pool deposits. With --follow the status is printed again on every new
tip, which requires rpc.ws_url.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&statusFollow, "follow", "f", false, "reprint on every new tip")
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, c, err := newProvider()
	if err != nil {
		return err
	}
	defer c.Close()

	b, err := p.GetBot()
	if err != nil {
		return err
	}
	el, err := di.Resolve[*execlog.Store](c, di.ServiceExecLog)
	if err != nil {
		return err
	}

	show := func(ctx context.Context) error {
		st, err := b.Status(ctx)
		if err != nil {
			return err
		}
		var summary *execlog.Summary
		if el != nil {
			s, err := el.Summary(ctx)
			if err != nil {
				return err
			}
			summary = &s
		}
		return renderStatus(cmd.OutOrStdout(), st, summary)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if err := show(ctx); err != nil {
		return err
	}
	if !statusFollow {
		return nil
	}

	cfg := p.GetConfig()
	if cfg.RPC.WSURL == "" {
		return fmt.Errorf("--follow needs rpc.ws_url")
	}
	logger, err := di.Resolve[log.Logger](c, di.ServiceLogger)
	if err != nil {
		return err
	}
	return followTips(ctx, rpc.NewTipSubscriber(cfg.RPC.WSURL, logger), func(ctx context.Context) error {
		fmt.Fprintln(cmd.OutOrStdout())
		return show(ctx)
	}, logger)
}

// followTips reruns refresh whenever a new tip arrives. Refresh errors are
// logged so a flaky node does not end the session.
func followTips(ctx context.Context, sub *rpc.TipSubscriber, refresh func(context.Context) error, logger log.Logger) error {
	err := sub.Run(ctx, func(h cell.Header) {
		logger.Debug("new tip", "number", h.Number)
		if err := refresh(ctx); err != nil {
			logger.Error("status refresh failed", "err", err)
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
