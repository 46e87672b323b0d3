package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/isaac-evs/side-b/internal/config"
	"github.com/isaac-evs/side-b/internal/factory"
	"github.com/isaac-evs/side-b/internal/logger"
	"github.com/isaac-evs/side-b/internal/stores"
)

var (
	envFiles    []string
	buildTarget string
	rootCmd     = &cobra.Command{
		Use:          "sideb",
		Short:        "side-b journal backend",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment is read")
	rootCmd.PersistentFlags().StringVar(&buildTarget, "build-target", "", "Override BUILD_TARGET (local, cloud-dev, cloud)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads dotenv files, applies flag overrides and returns the resolved config
// plus a logger that also becomes the global one.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, zerolog.Nop(), err
	}
	if buildTarget != "" {
		if err := os.Setenv(config.Prefix+"_BUILD_TARGET", buildTarget); err != nil {
			return nil, zerolog.Nop(), err
		}
	}
	cfg, err := config.New()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	l := logger.New("side-b", cfg.LogLevel)
	log.Logger = l
	return cfg, l, nil
}

// openServices wires and starts the stores for one-shot commands. The primary store
// must come up; secondary failures are reported and tolerated.
func openServices(ctx context.Context, cfg *config.Config, l zerolog.Logger) (*factory.Services, error) {
	svc, err := factory.NewServices(ctx, cfg, nil, l)
	if err != nil {
		return nil, err
	}
	bootCtx, cancel := context.WithTimeout(ctx, cfg.BootstrapTimeout)
	defer cancel()
	failed := svc.Start(bootCtx)
	if err := failed[stores.NamePrimary]; err != nil {
		_ = svc.Stop(context.Background())
		return nil, fmt.Errorf("primary store unavailable: %w", err)
	}
	for name, err := range failed {
		l.Warn().Err(err).Str("store", name).Msg("store unavailable")
		_ = svc.Manager.Deactivate(name)
	}
	return svc, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
