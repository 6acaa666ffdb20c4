package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/elektroapp/elektrodash/pkg/log"
)

// Preference keys.
const (
	KeyTheme              = "theme"
	KeyAutoRefreshEnabled = "autoRefreshEnabled"
	KeyPlannerDuration    = "plannerDuration"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	DefaultPlannerDuration = "120"
)

// Preferences is a typed view over a Store. Values are read once by Init and
// written through on every change.
type Preferences struct {
	store Store

	mu     sync.RWMutex
	values map[string]string
}

// NewPreferences returns Preferences backed by store.
func NewPreferences(store Store) *Preferences {
	return &Preferences{store: store, values: map[string]string{}}
}

// Init loads the stored preferences.
func (p *Preferences) Init(ctx context.Context) error {
	values, err := p.store.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = values
	if p.values == nil {
		p.values = map[string]string{}
	}
	log.Ctx(ctx).DebugContext(ctx, "loaded preferences", slog.Int("count", len(values)))
	return nil
}

func (p *Preferences) get(key, def string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok && v != "" {
		return v
	}
	return def
}

// set writes value through to the store and only then updates the cached
// value, so a failed write leaves the previous value in place.
func (p *Preferences) set(ctx context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.values[key]; ok && cur == value {
		return nil
	}
	if err := p.store.Set(ctx, key, value); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to persist preference", slog.String("key", key), slog.Any("error", err))
		return err
	}
	p.values[key] = value
	return nil
}

// Theme returns "light" or "dark".
func (p *Preferences) Theme() string {
	if p.get(KeyTheme, ThemeLight) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

func (p *Preferences) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("invalid theme: %q", theme)
	}
	return p.set(ctx, KeyTheme, theme)
}

// AutoRefreshEnabled is true unless the stored value is exactly "false".
func (p *Preferences) AutoRefreshEnabled() bool {
	return p.get(KeyAutoRefreshEnabled, "true") != "false"
}

func (p *Preferences) SetAutoRefreshEnabled(ctx context.Context, enabled bool) error {
	v := "false"
	if enabled {
		v = "true"
	}
	return p.set(ctx, KeyAutoRefreshEnabled, v)
}

// PlannerDuration returns the last planner duration as typed, default "120".
func (p *Preferences) PlannerDuration() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[KeyPlannerDuration]; ok {
		return v
	}
	return DefaultPlannerDuration
}

func (p *Preferences) SetPlannerDuration(ctx context.Context, duration string) error {
	return p.set(ctx, KeyPlannerDuration, duration)
}
