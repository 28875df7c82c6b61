// Package main provides the command-line shell for the prediction models.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/app"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/config"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/infrastructure/logger"
	"github.com/ressKim-io/EvoGuard/predict-service/internal/usecase"
)

// Version information (set at build time)
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "predict",
		Short: "Run the text sentiment and image classification models",
		Long: `Run pretrained models served by the ML service.

The text model classifies sentiment; the image model returns the top
labels for a picture. Pipelines are loaded on first use.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("ml-url", "", "base URL of the ML service")
	flags.String("text-model", "", "text model resource name")
	flags.String("image-model", "", "image model resource name")
	flags.Int("top-k", 0, "number of image labels to return")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Bool("cache", false, "cache results in redis")
	_ = v.BindPFlag("ml.base_url", flags.Lookup("ml-url"))
	_ = v.BindPFlag("models.text", flags.Lookup("text-model"))
	_ = v.BindPFlag("models.image", flags.Lookup("image-model"))
	_ = v.BindPFlag("models.top_k", flags.Lookup("top-k"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("redis.enabled", flags.Lookup("cache"))

	textCmd := &cobra.Command{
		Use:   "text [text...]",
		Short: "Classify the sentiment of a text",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, v, &usecase.RunInput{
				Kind: entity.InputKindText,
				Text: strings.Join(args, " "),
			})
		},
	}

	imageCmd := &cobra.Command{
		Use:   "image [path]",
		Short: "Classify an image file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := &usecase.RunInput{Kind: entity.InputKindImage}
			if len(args) == 1 {
				input.ImagePath = args[0]
			}
			return runAction(cmd, v, input)
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the configured models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := build(v)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			fmt.Fprint(cmd.OutOrStdout(), a.Predict.ModelInfo(cmd.Context()).Summary)
			return nil
		},
	}

	rootCmd.AddCommand(textCmd, imageCmd, infoCmd)
	return rootCmd
}

func build(v *viper.Viper) (*app.App, *zap.Logger, error) {
	cfg, err := config.LoadWith(v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLoggerTo(&cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return app.New(cfg, log, prometheus.NewRegistry()), log, nil
}

// runAction submits one action to the background worker and prints its
// messages. Model failures are printed, not returned.
func runAction(cmd *cobra.Command, v *viper.Viper, input *usecase.RunInput) error {
	a, log, err := build(v)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
		_ = a.Close()
	}()

	ctx := cmd.Context()
	select {
	case out := <-a.Predict.Submit(ctx, input):
		printOutput(cmd.OutOrStdout(), out)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func printOutput(w io.Writer, out *usecase.RunOutput) {
	for _, msg := range out.Messages {
		fmt.Fprintln(w, msg)
	}
}
