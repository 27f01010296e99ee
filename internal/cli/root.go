// Package cli implements the productshot command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"productshot/internal/infra"
	"productshot/internal/media"
)

// Version is the application version.
const Version = "0.1.0"

// Video is a decodable source with a known duration.
type Video interface {
	media.Decoder
	Duration(ctx context.Context) (float64, error)
}

// Env carries the process-wide dependencies of every command.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	// OpenVideo opens the file at path for frame capture.
	OpenVideo func(path string) (Video, error)
	// LoadConfig returns service configuration for local runs.
	LoadConfig func() (*infra.Config, error)
	// Quiet disables progress bars.
	Quiet bool
}

func defaultEnv() *Env {
	return &Env{
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		OpenVideo:  openFFmpeg,
		LoadConfig: infra.LoadConfig,
	}
}

func openFFmpeg(path string) (Video, error) {
	dec, err := media.NewFFmpegDecoder(path)
	if err != nil {
		return nil, err
	}
	if err := dec.CheckTools(); err != nil {
		return nil, err
	}
	return dec, nil
}

// NewRootCommand builds the command tree around env.
func NewRootCommand(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "productshot",
		Short:         "Turn a product video into studio product shots",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.PersistentFlags().BoolVarP(&env.Quiet, "quiet", "q", env.Quiet, "Disable progress output")

	root.AddCommand(
		newSampleCommand(env),
		newProcessCommand(env),
		newVersionCommand(env),
	)
	return root
}

// Execute runs the CLI until completion or interrupt.
func Execute() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(defaultEnv()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "productshot:", err)
		stop()
		os.Exit(1)
	}
}

func newVersionCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(env.Stdout, Version)
		},
	}
}
