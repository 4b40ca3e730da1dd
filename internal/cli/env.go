package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/planetarium/internal/config"
	"github.com/roach88/planetarium/internal/generate"
	"github.com/roach88/planetarium/internal/kv"
	"github.com/roach88/planetarium/internal/metrics"
	"github.com/roach88/planetarium/internal/persist"
	"github.com/roach88/planetarium/internal/scene"
	"github.com/roach88/planetarium/internal/store"
)

// sceneEnv is an opened scene plus the collaborators a command needs.
type sceneEnv struct {
	cfg     config.Config
	session *persist.Session
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// configureLogging installs a text handler on cmd's stderr, at debug level
// when verbose.
func configureLogging(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Variant != "" {
		cfg.Variant = scene.Variant(opts.Variant)
	}
	if opts.Store != "" {
		cfg.Storage.Path = opts.Store
	}
	if opts.seedSet {
		seed := opts.Seed
		cfg.Seed = &seed
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openScene loads config, opens storage and rehydrates the session.
// Failures are reported through f and returned as ExitErrors.
func openScene(cmd *cobra.Command, opts *RootOptions, f *OutputFormatter) (*sceneEnv, error) {
	logger := configureLogging(opts, cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeInvalidConfig, "invalid configuration", err)
	}

	ctx := cmd.Context()
	f.VerboseLog("Opening %s storage for %s scene", cfg.Storage.Driver, cfg.Variant)
	storage, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStorage, "failed to open storage", err)
	}

	m := metrics.New()
	var genOpts []generate.Option
	if cfg.Seed != nil {
		genOpts = append(genOpts, generate.WithSeed(*cfg.Seed))
	}
	if cfg.IDs == config.IDsUUID {
		genOpts = append(genOpts, generate.WithIDs(generate.UUIDv7IDs{}))
	}
	session, err := persist.Open(ctx, persist.SessionConfig{
		Variant:   cfg.Variant,
		Max:       cfg.MaxInstances,
		Storage:   storage,
		Generator: genOpts,
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		_ = storage.Close()
		return nil, f.Fail(ExitCommandError, ErrCodeStorage, "failed to open scene", err)
	}
	return &sceneEnv{cfg: cfg, session: session, metrics: m, logger: logger}, nil
}

// Close flushes pending saves and releases storage. Metrics are logged at
// debug level.
func (e *sceneEnv) Close() {
	if err := e.session.Close(); err != nil {
		e.logger.Warn("failed to close storage", "error", err)
	}
	samples, err := e.metrics.Snapshot()
	if err != nil {
		e.logger.Debug("failed to gather metrics", "error", err)
		return
	}
	for _, s := range samples {
		e.logger.Debug("metric", "name", s.Name, "labels", s.Labels, "value", s.Value)
	}
}

func (e *sceneEnv) store() *store.Store { return e.session.Store() }

// instanceView is the CLI rendering of one record.
type instanceView struct {
	ID          string     `json:"id"`
	Kind        scene.Kind `json:"kind"`
	Name        string     `json:"name,omitempty"`
	Color       string     `json:"color"`
	Scale       float64    `json:"scale"`
	Position    scene.Vec3 `json:"position"`
	HasRing     bool       `json:"hasRing,omitempty"`
	HasCraters  bool       `json:"hasCraters,omitempty"`
	Selected    bool       `json:"selected,omitempty"`
	LastCreated bool       `json:"lastCreated,omitempty"`
}

func newInstanceView(inst scene.Instance, snap store.Snapshot) instanceView {
	v := instanceView{
		ID:          inst.ID,
		Kind:        inst.Kind(),
		Color:       inst.Color,
		Scale:       inst.Scale,
		Position:    inst.Position,
		Selected:    inst.ID == snap.SelectedID,
		LastCreated: inst.ID == snap.LastCreatedID,
	}
	if p, ok := inst.Planet(); ok {
		v.Name = p.Name
		v.HasRing = p.HasRing
		v.HasCraters = p.HasCraters
	}
	return v
}

// String renders one list line: markers, kind, label, color, scale, position.
func (v instanceView) String() string {
	marker := " "
	switch {
	case v.Selected:
		marker = "*"
	case v.LastCreated:
		marker = "+"
	}
	label := v.ID
	if v.Name != "" {
		label = fmt.Sprintf("%s (%s)", v.Name, v.ID)
	}
	extras := ""
	if v.HasRing {
		extras += " ring"
	}
	if v.HasCraters {
		extras += " craters"
	}
	return fmt.Sprintf("%s %-6s %-32s %s scale=%.2f pos=(%.2f, %.2f, %.2f)%s",
		marker, v.Kind, label, v.Color, v.Scale, v.Position[0], v.Position[1], v.Position[2], extras)
}

// sceneView is the CLI rendering of the whole scene.
type sceneView struct {
	Variant         scene.Variant  `json:"variant"`
	Max             int            `json:"max"`
	Instances       []instanceView `json:"instances"`
	SelectedID      string         `json:"selectedId,omitempty"`
	LastCreatedID   string         `json:"lastCreatedId,omitempty"`
	StorageDisabled bool           `json:"storageDisabled,omitempty"`
}

func (e *sceneEnv) view() sceneView {
	snap := e.store().Snapshot()
	v := sceneView{
		Variant:         e.cfg.Variant,
		Max:             e.store().Max(),
		Instances:       make([]instanceView, 0, len(snap.Instances)),
		SelectedID:      snap.SelectedID,
		LastCreatedID:   snap.LastCreatedID,
		StorageDisabled: e.session.StorageDisabled(),
	}
	for _, inst := range snap.Instances {
		v.Instances = append(v.Instances, newInstanceView(inst, snap))
	}
	return v
}

func (e *sceneEnv) instanceView(id string) (instanceView, bool) {
	snap := e.store().Snapshot()
	for _, inst := range snap.Instances {
		if inst.ID == id {
			return newInstanceView(inst, snap), true
		}
	}
	return instanceView{}, false
}
