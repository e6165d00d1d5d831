package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/trendteller/internal/api"
	"github.com/KaramelBytes/trendteller/internal/plot"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		opt := api.Options{
			CORSOrigins:    a.cfg.CORSOrigins,
			MaxUploadBytes: int64(a.cfg.MaxUploadMB) << 20,
		}
		if sink := strings.ToLower(a.cfg.PlotsSink); sink == "" || sink == "dir" {
			opt.PlotsDir = a.cfg.PlotsDir
			if opt.PlotsDir == "" {
				opt.PlotsDir = plot.DefaultDir
			}
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewServer(a.datasets, a.insights, a.log, opt).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.log.Info("http api listening",
				zap.String("addr", addr),
				zap.String("store", a.cfg.StoreKind),
				zap.String("plots_sink", a.cfg.PlotsSink))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.log.Info("shutting down http api")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}
