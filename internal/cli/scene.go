package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/planetarium/internal/scene"
	"github.com/roach88/planetarium/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Count int
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Add randomly generated records to the scene",
		Long: `Add one or more randomly generated records.

New records are prepended and placed on a golden-angle spiral. When the
scene is full the oldest records are evicted.

Example:
  planetarium generate -n 5
  planetarium generate --variant planets --seed 42`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 1, "number of records to add")

	return cmd
}

type generateResult struct {
	Created []instanceView `json:"created"`
	Count   int            `json:"count"`
	Max     int            `json:"max"`
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Count < 1 {
		return f.Fail(ExitCommandError, ErrCodeInvalidArgument,
			fmt.Sprintf("count must be at least 1, got %d", opts.Count), nil)
	}

	env, err := openScene(cmd, opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer env.Close()

	ids := make([]string, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		inst, err := env.session.AddRandom()
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeGeneric, "failed to add record", err)
		}
		ids = append(ids, inst.ID)
	}

	result := generateResult{Count: env.store().Len(), Max: env.store().Max()}
	for _, id := range ids {
		// Records evicted by a later insert in the same batch are skipped.
		if v, ok := env.instanceView(id); ok {
			result.Created = append(result.Created, v)
		}
	}

	if f.JSON() {
		return f.Success(result)
	}
	for _, v := range result.Created {
		f.Printf("✓ Added %s %s at (%.2f, %.2f, %.2f)\n", v.Kind, v.ID, v.Position[0], v.Position[1], v.Position[2])
	}
	f.Printf("%d/%d records\n", result.Count, result.Max)
	return nil
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the records in the scene",
		Long: `List the records in the scene, newest first.

The selected record is marked with '*'.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	env, err := openScene(cmd, opts, f)
	if err != nil {
		return err
	}
	defer env.Close()

	view := env.view()
	if f.JSON() {
		return f.Success(view)
	}
	f.Printf("%s: %d/%d records\n", view.Variant, len(view.Instances), view.Max)
	for _, v := range view.Instances {
		f.Printf("%s\n", v)
	}
	if view.StorageDisabled {
		f.Printf("(storage disabled for this session)\n")
	}
	return nil
}

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	*RootOptions
	None bool
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "select [id]",
		Short: "Select a record, or clear the selection with --none",
		Args:  cobra.MaximumNArgs(1),
		Example: `  planetarium select lx2k9f-a1b2c3
  planetarium select --none`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.None, "none", false, "clear the selection")

	return cmd
}

type selectResult struct {
	SelectedID string `json:"selectedId,omitempty"`
	Changed    bool   `json:"changed"`
}

func runSelect(opts *SelectOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.None == (len(args) == 1) {
		return f.Fail(ExitCommandError, ErrCodeInvalidArgument, "give exactly one of <id> or --none", nil)
	}

	env, err := openScene(cmd, opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer env.Close()

	var changed bool
	var label string
	if opts.None {
		changed = env.session.ClearSelection()
	} else {
		id := args[0]
		inst, ok := env.store().Find(id)
		if !ok {
			return f.Fail(ExitFailure, ErrCodeUnknownInstance, fmt.Sprintf("no record with id %q", id), nil)
		}
		changed = env.session.Select(id)
		label = inst.Label()
	}

	result := selectResult{SelectedID: env.store().Snapshot().SelectedID, Changed: changed}
	if f.JSON() {
		return f.Success(result)
	}
	switch {
	case !changed:
		f.Printf("Selection unchanged\n")
	case result.SelectedID == "":
		f.Printf("✓ Selection cleared\n")
	default:
		f.Printf("✓ Selected %s\n", label)
	}
	return nil
}

// TapOptions holds flags for the tap command.
type TapOptions struct {
	*RootOptions
	Yaw      float64
	Pitch    float64
	Distance float64
}

// NewTapCommand creates the tap command.
func NewTapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TapOptions{RootOptions: rootOpts}
	camera := scene.DefaultCamera()

	cmd := &cobra.Command{
		Use:   "tap <x> <y>",
		Short: "Select the record under a screen point",
		Long: `Cast a ray from the orbit camera through a point on screen and select the
nearest record it hits. A tap on empty space clears the selection.

x and y are normalized device coordinates in [-1, 1], with +y up.

Example:
  planetarium tap 0 0
  planetarium tap -- -0.4 0.2`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTap(opts, args, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Yaw, "yaw", camera.Yaw, "camera yaw in radians")
	cmd.Flags().Float64Var(&opts.Pitch, "pitch", camera.Pitch, "camera pitch in radians")
	cmd.Flags().Float64Var(&opts.Distance, "distance", camera.Distance, "camera distance from the origin")

	return cmd
}

type tapResult struct {
	Hit        bool   `json:"hit"`
	ID         string `json:"id,omitempty"`
	SelectedID string `json:"selectedId,omitempty"`
}

func runTap(opts *TapOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	x, errX := strconv.ParseFloat(args[0], 64)
	y, errY := strconv.ParseFloat(args[1], 64)
	if err := errors.Join(errX, errY); err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidArgument, "coordinates must be numbers", err)
	}
	if x < -1 || x > 1 || y < -1 || y > 1 {
		return f.Fail(ExitCommandError, ErrCodeInvalidArgument,
			fmt.Sprintf("coordinates (%g, %g) outside [-1, 1]", x, y), nil)
	}
	if opts.Distance <= 0 {
		return f.Fail(ExitCommandError, ErrCodeInvalidArgument, "distance must be positive", nil)
	}

	env, err := openScene(cmd, opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer env.Close()

	camera := scene.DefaultCamera()
	camera.Yaw, camera.Pitch, camera.Distance = opts.Yaw, opts.Pitch, opts.Distance
	id, hit := env.session.Tap(camera.Ray(x, y))
	env.logger.Debug("tap", "x", x, "y", y, "hit", hit, "id", id)

	result := tapResult{Hit: hit, ID: id, SelectedID: env.store().Snapshot().SelectedID}
	if f.JSON() {
		return f.Success(result)
	}
	if hit {
		label := id
		if inst, ok := env.store().Find(id); ok {
			label = inst.Label()
		}
		f.Printf("✓ Hit %s\n", label)
	} else {
		f.Printf("Missed; selection cleared\n")
	}
	return nil
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <id>",
		Short:         "Remove one record from the scene",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(rootOpts, args[0], cmd)
		},
	}
}

func runRemove(opts *RootOptions, id string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	env, err := openScene(cmd, opts, f)
	if err != nil {
		return err
	}
	defer env.Close()

	label := id
	if inst, ok := env.store().Find(id); ok {
		label = inst.Label()
	}
	if err := env.session.Remove(id); err != nil {
		if errors.Is(err, store.ErrUnknownInstance) {
			return f.Fail(ExitFailure, ErrCodeUnknownInstance, fmt.Sprintf("no record with id %q", id), err)
		}
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to remove record", err)
	}

	if f.JSON() {
		return f.Success(map[string]any{"removed": id, "count": env.store().Len()})
	}
	f.Printf("✓ Removed %s\n", label)
	return nil
}

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Forget bool
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Reset the scene to its baseline",
		Long: `Reset the scene to its baseline: the seed box for shapes, empty for planets.

With --forget the stored document is removed instead of overwritten.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Forget, "forget", false, "remove the stored document")

	return cmd
}

func runClear(opts *ClearOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	env, err := openScene(cmd, opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer env.Close()

	if opts.Forget {
		env.session.Forget(cmd.Context())
	} else {
		env.session.Clear()
	}

	if f.JSON() {
		return f.Success(env.view())
	}
	f.Printf("✓ Scene cleared (%d records)\n", env.store().Len())
	return nil
}
