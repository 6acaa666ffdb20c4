package main

import (
	"context"
	"os"

	"github.com/elektroapp/elektrodash/pkg/log"
	"github.com/elektroapp/elektrodash/pkg/storage"
	"github.com/levenlabs/go-lflag"
)

// seed writes a set of preferences into the configured store, by default the
// local Firestore emulator.
func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.Configured()
	theme := lflag.String("seed-theme", storage.ThemeDark, "Theme to store")
	autoRefresh := lflag.Bool("seed-auto-refresh", true, "Auto refresh flag to store")
	duration := lflag.String("seed-planner-duration", storage.DefaultPlannerDuration, "Planner duration to store")
	lflag.Configure()

	ctx := context.Background()
	defer s.Close()

	prefs := storage.NewPreferences(s)
	if err := prefs.Init(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load preferences", "error", err)
		os.Exit(1)
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding preferences")
	if err := prefs.SetTheme(ctx, *theme); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed theme", "error", err)
		os.Exit(1)
	}
	if err := prefs.SetAutoRefreshEnabled(ctx, *autoRefresh); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed auto refresh", "error", err)
		os.Exit(1)
	}
	if err := prefs.SetPlannerDuration(ctx, *duration); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed planner duration", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeded preferences", "theme", prefs.Theme(), "autoRefresh", prefs.AutoRefreshEnabled(), "plannerDuration", prefs.PlannerDuration())
}
