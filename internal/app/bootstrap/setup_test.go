package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"roost/internal/domain"
)

func TestSetupWiresRuntime(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "roost.db"))
	t.Setenv("REDIS_URL", "")
	t.Setenv("GEOLITE_DB_PATH", "")
	t.Setenv("ADMIN_TOKEN", "SetupAdminTokenSetupAdminToken12")

	rt, err := Setup(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := rt.Close(); err != nil {
			t.Errorf("Close returned error: %v", err)
		}
	})

	ctx := context.Background()

	state, err := rt.Managers.State(ctx, "SetupAdminTokenSetupAdminToken12")
	if err != nil || state != domain.ManagerAdmin {
		t.Fatalf("seeded admin state = %v, %v", state, err)
	}

	if _, err := rt.Pool.AddProxies(ctx, []string{"http://10.0.0.1:8080"}); err != nil {
		t.Fatalf("AddProxies: %v", err)
	}
	stats, err := rt.Pool.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("stats.Total = %d, want 1", stats.Total)
	}

	families, err := rt.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered collectors")
	}
}

func TestSetupRejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "oracle")

	if _, err := Setup(filepath.Join(dir, "settings.json")); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
