package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"productshot/internal/domain"
	"productshot/internal/media"
	"productshot/internal/storage"
)

type sampleOptions struct {
	input  string
	out    string
	frames int
}

func newSampleCommand(env *Env) *cobra.Command {
	var opts sampleOptions
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Capture evenly spaced JPEG frames from a video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := sampleVideo(cmd.Context(), env, opts.input, opts.frames)
			if err != nil {
				return err
			}
			store, err := storage.NewFileStore(opts.out)
			if err != nil {
				return err
			}
			for _, f := range frames {
				if _, err := store.Write(cmd.Context(), frameName(f.Index), f.Data); err != nil {
					return err
				}
			}
			fmt.Fprintf(env.Stdout, "wrote %d frames to %s\n", len(frames), store.BasePath())
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Path to video")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "frames", "Output directory")
	cmd.Flags().IntVarP(&opts.frames, "frames", "n", media.DefaultFrameCount, "Number of frames to sample")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func frameName(index int) string {
	return fmt.Sprintf("frame_%02d.jpg", index+1)
}

// sampleVideo opens input and captures frames with a progress bar on stderr.
func sampleVideo(ctx context.Context, env *Env, input string, count int) ([]domain.Frame, error) {
	video, err := env.OpenVideo(input)
	if err != nil {
		return nil, err
	}
	duration, err := video.Duration(ctx)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = media.DefaultFrameCount
	}

	out := env.Stderr
	if env.Quiet {
		out = io.Discard
	}
	bar := progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Sampling frames"),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
	defer func() { _ = bar.Finish() }()

	sampler := &media.Sampler{OnFrame: func(done, total int) {
		_ = bar.Set(done)
	}}
	return sampler.Sample(ctx, video, duration, count)
}
