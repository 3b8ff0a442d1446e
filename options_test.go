package denoiser

import "testing"

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() returned error: %v", err)
	}
	if cfg.Workers != 1 {
		t.Fatalf("Workers = %d; want 1", cfg.Workers)
	}
	if cfg.SlavesPerRow != 1 {
		t.Fatalf("SlavesPerRow = %d; want 1 (derived from Workers=1)", cfg.SlavesPerRow)
	}
}

func TestNewConfig_DerivesSlavesPerRowWhenUnset(t *testing.T) {
	cfg, err := NewConfig(WithWorkers(9))
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.SlavesPerRow != 3 {
		t.Fatalf("SlavesPerRow = %d; want 3 for Workers=9", cfg.SlavesPerRow)
	}
}

func TestNewConfig_ExplicitGridOverridesDerivation(t *testing.T) {
	cfg, err := NewConfig(WithWorkers(9), WithGrid(1))
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.SlavesPerRow != 1 {
		t.Fatalf("SlavesPerRow = %d; want 1 (explicit override)", cfg.SlavesPerRow)
	}
}

func TestNewConfig_DistributedDefaultsCoordinatorRankToWorkerCount(t *testing.T) {
	cfg, err := NewConfig(
		WithMode(ModeDistributed),
		WithWorkers(2),
		WithRank(2),
		WithEndpoints(map[int]string{0: "localhost:9001", 1: "localhost:9002", 2: "localhost:9000"}),
	)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.CoordinatorRank != 2 {
		t.Fatalf("CoordinatorRank = %d; want 2 (defaulted to Workers)", cfg.CoordinatorRank)
	}
}

func TestNewConfig_PropagatesValidationError(t *testing.T) {
	if _, err := NewConfig(WithMode(ModeDistributed), WithWorkers(2)); err == nil {
		t.Fatal("expected error for distributed mode with no Endpoints")
	}
}

func TestWithEndpoints_DefensiveCopy(t *testing.T) {
	endpoints := map[int]string{0: "localhost:9000", 1: "localhost:9001"}
	cfg, err := NewConfig(
		WithMode(ModeDistributed),
		WithWorkers(1),
		WithRank(1),
		WithCoordinatorRank(1),
		WithEndpoints(endpoints),
	)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	endpoints[0] = "mutated"
	if cfg.Endpoints[0] != "localhost:9000" {
		t.Fatal("WithEndpoints must copy the map rather than alias the caller's")
	}
}

func TestWithWorkers_PanicsOnNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for WithWorkers(0)")
		}
	}()
	WithWorkers(0)(&configOptions{})
}

func TestWithGrid_PanicsOnNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for WithGrid(0)")
		}
	}()
	WithGrid(0)(&configOptions{})
}

func TestNewConfig_PanicsOnNilOption(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for a nil Option")
		}
	}()
	_, _ = NewConfig(nil)
}
