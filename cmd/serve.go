package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pavement-cli/internal/psv"
	"github.com/sells-group/pavement-cli/internal/web"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload form and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		var opts []web.Option
		if st != nil {
			defer st.Close() //nolint:errcheck
			opts = append(opts, web.WithStore(st))
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", resolvePort()),
			Handler:           web.NewServer(webConfig(), opts...).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func resolvePort() int {
	if servePort != 0 {
		return servePort
	}
	return cfg.Server.Port
}

func webConfig() web.Config {
	strategy, _ := psv.ParseStrategy(cfg.Reference.Strategy) // checked by Validate
	return web.Config{
		Params:         calcParams(),
		Strategy:       strategy,
		Concurrency:    cfg.Calc.Concurrency,
		Criteria:       tracsCriteria(),
		Input:          inputOptions("", ""),
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		CORSOrigins:    cfg.Server.CORSOrigins,
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
