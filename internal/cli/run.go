package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/LeJamon/goickb/internal/di"
	"github.com/LeJamon/goickb/internal/log"
)

var runOnce bool

// runCmd starts the bot loop
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the matching bot",
	Long: `Run the bot until interrupted. Each cycle reads the wallet and the
market, builds the most profitable transaction and submits it.

When metrics.listen is set, Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and exit")
}

func runBot(cmd *cobra.Command, args []string) error {
	p, c, err := newProvider()
	if err != nil {
		return err
	}
	defer c.Close()

	logger, err := di.Resolve[log.Logger](c, di.ServiceLogger)
	if err != nil {
		return err
	}
	b, err := p.GetBot()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runOnce {
		rec, err := b.Cycle(ctx)
		if err != nil {
			return err
		}
		if rec.Submitted() {
			infof(cmd, "submitted %s", rec.TxHash)
		} else {
			infof(cmd, "nothing to do")
		}
		return nil
	}

	cfg := p.GetConfig()
	if cfg.Metrics.IsEnabled() {
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: metricsMux(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("starting bot", "network", cfg.Network, "rpc", cfg.RPC.URL)
	err = b.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("bot stopped")
		return nil
	}
	return err
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"ickbd"}`))
	})
	return mux
}
