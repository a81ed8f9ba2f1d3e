package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stratadb/strata/pkg/storage"
	"github.com/stratadb/strata/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve table objects from the distributed store over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	serveCmd.Flags().StringP("listen", "l", ":9867", "[addr]:port to listen on")
	serveCmd.Flags().String("root", "", "storage root the service fronts")
	serveCmd.Flags().String("log-level", "info", "logging level (debug, info, warn, error)")
	bindFlags(serveCmd, "listen", "root", "log-level")
	rootCmd.AddCommand(serveCmd)
}

// bindFlags registers the named cobra flags with viper so environment
// variables (STRATA_LISTEN, STRATA_LOG_LEVEL, ...) override flag
// defaults; explicit flags still win.
func bindFlags(cmd *cobra.Command, names ...string) {
	viper.SetEnvPrefix("STRATA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, name := range names {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
		if err := viper.BindEnv(name); err != nil {
			panic(err)
		}
	}
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger, err := newLogger(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	defer logger.Sync()
	root, err := storage.ParseURI(viper.GetString("root"))
	if err != nil {
		return err
	}
	core, err := service.NewCore(ctx, service.Config{Root: root, Logger: logger})
	if err != nil {
		return err
	}
	addr := viper.GetString("listen")
	srv := &http.Server{Addr: addr, Handler: core}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("Listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	conf := zap.NewProductionConfig()
	conf.Level = zap.NewAtomicLevelAt(lvl)
	conf.Sampling = nil
	return conf.Build()
}
