package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"productshot/internal/bootstrap"
	"productshot/internal/domain"
	"productshot/internal/infra"
	"productshot/internal/media"
	"productshot/internal/pipeline"
	"productshot/internal/storage"
	"productshot/pkg/zip"
)

// ArchiveName is the bundle written by process --zip.
const ArchiveName = "productshot.zip"

type processOptions struct {
	input  string
	out    string
	frames int
	zip    bool
	server string
}

func newProcessCommand(env *Env) *cobra.Command {
	var opts processOptions
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Sample a video and generate segmented and enhanced product shots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), env, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Path to video")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "productshots", "Output directory")
	cmd.Flags().IntVarP(&opts.frames, "frames", "n", media.DefaultFrameCount, "Number of candidate frames to sample")
	cmd.Flags().BoolVar(&opts.zip, "zip", false, "Write a single zip archive instead of loose files")
	cmd.Flags().StringVar(&opts.server, "server", "", "Send frames to a running API at this base URL instead of calling the model directly")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runProcess(ctx context.Context, env *Env, opts processOptions) error {
	frames, err := sampleVideo(ctx, env, opts.input, opts.frames)
	if err != nil {
		return err
	}

	var data *domain.ProcessedData
	if opts.server != "" {
		client := &http.Client{Timeout: 10 * time.Minute}
		data, err = processRemote(ctx, client, opts.server, frames)
	} else {
		data, err = processLocal(ctx, env, frames)
	}
	if err != nil {
		return err
	}

	written, err := writeResult(ctx, opts, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "identified %q: %d views written to %s\n", data.IdentifiedProduct, len(data.GeneratedViews), written)
	return nil
}

func processLocal(ctx context.Context, env *Env, frames []domain.Frame) (*domain.ProcessedData, error) {
	cfg, err := env.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := infra.NewCLILogger(env.Stderr, cfg.AppEnv == "development" && !env.Quiet)

	model, err := bootstrap.Model(ctx, cfg, &logger)
	if err != nil {
		return nil, err
	}
	runner := pipeline.New(model, pipeline.Options{MaxConcurrency: cfg.PipelineMaxConcurrency, Logger: &logger})
	return runner.Run(ctx, frames)
}

// writeResult stores views under opts.out and returns the written location.
func writeResult(ctx context.Context, opts processOptions, data *domain.ProcessedData) (string, error) {
	assets, err := storage.ViewAssets(data)
	if err != nil {
		return "", err
	}
	store, err := storage.NewFileStore(opts.out)
	if err != nil {
		return "", err
	}
	if !opts.zip {
		if _, err := store.WriteAssets(ctx, "", assets); err != nil {
			return "", err
		}
		return store.BasePath(), nil
	}
	archive, err := zip.ArchiveAssets(assets, time.Now().UTC())
	if err != nil {
		return "", err
	}
	key, err := store.Write(ctx, ArchiveName, archive)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(store.BasePath(), "/") + "/" + key, nil
}
