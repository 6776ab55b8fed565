package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/FyshOS/screens/config"
	"github.com/FyshOS/screens/display"
	"github.com/FyshOS/screens/logger"
	"github.com/FyshOS/screens/monitor"
	"github.com/FyshOS/screens/x11"
)

type options struct {
	configPath string
	backend    string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "screens",
		Short:         "Discover monitors and follow topology changes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath(), "path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "backend to use: auto, x11 or wayland")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(newListCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newSettingsCmd(opts))
	return root
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "screens", "config.yaml")
}

// open loads configuration and starts the selected backend. The initial
// topology is published when it returns.
func open(ctx context.Context, opts *options) (monitor.Backend, zerolog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if opts.backend != "" {
		cfg.Backend = opts.backend
		if err := cfg.Validate(); err != nil {
			return nil, zerolog.Nop(), err
		}
	}
	if opts.debug {
		cfg.Log.Debug = true
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("logger: %w", err)
	}

	backend, err := display.Open(cfg, log)
	if err != nil {
		return nil, log, err
	}
	if err := backend.Start(ctx); err != nil {
		backend.Close()
		return nil, log, fmt.Errorf("start %s backend: %w", backend.Name(), err)
	}
	log.Debug().Str("backend", backend.Name()).Int("monitors", backend.Monitors().Len()).Msg("discovery complete")
	return backend, log, nil
}

func newListCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the current monitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer backend.Close()

			records := backend.Monitors().Current()
			switch output {
			case "table":
				return renderTable(cmd.OutOrStdout(), records)
			case "yaml":
				return renderYAML(cmd.OutOrStdout(), records)
			}
			return fmt.Errorf("unknown output format %q", output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or yaml")
	return cmd
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print monitor changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			backend, log, err := open(ctx, opts)
			if err != nil {
				return err
			}
			defer backend.Close()

			out := cmd.OutOrStdout()
			set := backend.Monitors()
			if err := renderTable(out, set.Current()); err != nil {
				return err
			}
			cancel := set.Subscribe(monitor.ListenerFuncs{
				Added: func(r *monitor.Record) {
					fmt.Fprintf(out, "+ %s %s\n", r.Connector(), r.Description())
				},
				Removed: func(r *monitor.Record) {
					fmt.Fprintf(out, "- %s %s\n", r.Connector(), r.Description())
				},
				Changed: func() {
					if err := renderTable(out, set.Current()); err != nil {
						log.Warn().Err(err).Msg("render")
					}
				},
			})
			defer cancel()

			return backend.Run(ctx)
		},
	}
}

func newSettingsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Dump the XSETTINGS published by the settings manager (X11 only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer backend.Close()

			engine, ok := backend.(*x11.Engine)
			if !ok {
				return errors.New("settings are only available on the X11 backend")
			}
			settings, err := engine.Settings()
			if err != nil {
				return fmt.Errorf("read settings: %w", err)
			}
			return renderSettings(cmd.OutOrStdout(), settings)
		},
	}
}
