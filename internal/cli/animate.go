package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/planetarium/internal/animate"
)

// AnimateOptions holds flags for the animate command.
type AnimateOptions struct {
	*RootOptions
	Frames int
	FPS    int
}

// NewAnimateCommand creates the animate command.
func NewAnimateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnimateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "animate",
		Short: "Add a record and print its spawn animation curve",
		Long: `Add one generated record and print the per-frame scale of its spring
pop-in animation, from 0 to the record's scale.

Only the most recently created record animates.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnimate(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Frames, "frames", 0, "frames to print (0 = until settled)")
	cmd.Flags().IntVar(&opts.FPS, "fps", 60, "frames per second")

	return cmd
}

type animateResult struct {
	ID      string    `json:"id"`
	FPS     int       `json:"fps"`
	Settled int       `json:"settledFrame"` // -1 when not settled within the limit
	Scales  []float64 `json:"scales"`
}

// maxAnimateFrames bounds the settle search.
const maxAnimateFrames = 600

func runAnimate(opts *AnimateOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.FPS < 1 || opts.Frames < 0 || opts.Frames > maxAnimateFrames {
		return f.Fail(ExitCommandError, ErrCodeInvalidArgument,
			fmt.Sprintf("need fps >= 1 and 0 <= frames <= %d", maxAnimateFrames), nil)
	}

	env, err := openScene(cmd, opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer env.Close()

	inst, err := env.session.AddRandom()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to add record", err)
	}
	if env.store().Snapshot().LastCreatedID != inst.ID {
		return f.Fail(ExitFailure, ErrCodeGeneric, "new record is not the last created", nil)
	}

	spring := animate.DefaultSpring()
	dt := 1 / float64(opts.FPS)
	settled := spring.SettleFrames(dt, maxAnimateFrames)
	frames := opts.Frames
	if frames == 0 {
		frames = settled
		if frames < 0 {
			frames = maxAnimateFrames
		}
	}

	curve := spring.Sample(frames, dt)
	result := animateResult{ID: inst.ID, FPS: opts.FPS, Settled: settled, Scales: make([]float64, len(curve))}
	for i, v := range curve {
		result.Scales[i] = v * inst.Scale
	}

	if f.JSON() {
		return f.Success(result)
	}
	f.Printf("✓ Added %s %s; settles after %d frames at %d fps\n", inst.Kind(), inst.ID, settled, opts.FPS)
	for i, s := range result.Scales {
		f.Printf("%4d %.4f\n", i+1, s)
	}
	return nil
}
