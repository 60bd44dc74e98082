package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/gogpu/trscan"
	"github.com/gogpu/trscan/internal/config"
	"github.com/gogpu/trscan/internal/metrics"
)

const readHeaderTimeout = 10 * time.Second

func serveCommand(cfg *config.Config, log **zap.Logger) *cli.Command {
	var listen string
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve classification over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Listen address; overrides the config file", Destination: &listen},
		},
		Action: func(c *cli.Context) error {
			if listen != "" {
				cfg.Server.ListenAddr = listen
			}
			figure.NewFigure("trscan", "", true).Print()

			app := fx.New(
				serverOptions(cfg, *log),
				fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
					return &fxevent.ZapLogger{Logger: l.Named("fx")}
				}),
			)
			app.Run()
			return app.Err()
		},
	}
}

// serverOptions wires the processor, the handler and the HTTP server.
func serverOptions(cfg *config.Config, log *zap.Logger) fx.Option {
	return fx.Options(
		fx.Supply(cfg, log),
		fx.Provide(
			newServerProcessor,
			NewHandler,
			newMux,
			newHTTPServer,
		),
		fx.Invoke(func(*http.Server) {}),
	)
}

func newServerProcessor(lc fx.Lifecycle, cfg *config.Config) (*trscan.Processor, error) {
	proc, err := newProcessor(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return proc.Close()
		},
	})
	return proc, nil
}

func newMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/v1/process", metrics.Middleware(http.HandlerFunc(h.Process), "/v1/process"))
	mux.Handle("/healthz", metrics.Middleware(http.HandlerFunc(h.Health), "/healthz"))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, mux *http.ServeMux, log *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("Starting server on", zap.String("address", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
	return srv
}
