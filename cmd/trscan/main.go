// Command trscan classifies UTF-8 text on the GPU and reports Turkish
// character statistics.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/gogpu/trscan"
	"github.com/gogpu/trscan/internal/config"
	"github.com/gogpu/trscan/internal/logger"
)

func main() {
	var configPath, verbosity string
	cfg := config.Default()
	rootLogger := zap.NewNop()

	app := &cli.App{
		Name:  "trscan",
		Usage: "GPU classification of UTF-8 text with Turkish character statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "Path to the YAML configuration file",
				EnvVars:     []string{"TRSCAN_CONFIG"},
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "verbosity",
				Usage:       "Log level (debug, info, warn, error); overrides the config file",
				Destination: &verbosity,
			},
		},
		Before: func(c *cli.Context) error {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			*cfg = *loaded
			if verbosity != "" {
				cfg.Logger.Verbosity = verbosity
			}
			zapLogger, err := logger.New(cfg.Logger.Verbosity)
			if err != nil {
				return err
			}
			rootLogger = zapLogger.Named("cli")
			trscan.SetLogger(logger.Slog(zapLogger.Named("trscan")))
			return nil
		},
		After: func(c *cli.Context) error {
			_ = rootLogger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			processCommand(cfg),
			benchCommand(cfg),
			infoCommand(cfg),
			serveCommand(cfg, &rootLogger),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newProcessor builds a processor from the configuration.
func newProcessor(cfg *config.Config) (*trscan.Processor, error) {
	platform, err := trscan.PlatformByName(cfg.GPU.Backend)
	if err != nil {
		return nil, err
	}
	opts := []trscan.Option{
		trscan.WithPlatform(platform),
		trscan.WithFenceTimeout(cfg.GPU.FenceTimeout),
		trscan.WithNFC(cfg.GPU.NFC),
	}
	if cfg.Kernel.Path != "" {
		opts = append(opts, trscan.WithKernelFile(cfg.Kernel.Path))
	}
	return trscan.New(opts...), nil
}
