package jsonfile

import (
	"context"
	"fmt"
	"os"
)

// HealthCheck implements ports.HealthChecker for the data directory.
type HealthCheck struct {
	store *Store
}

// NewHealthCheck creates a data directory health checker.
func NewHealthCheck(store *Store) *HealthCheck {
	return &HealthCheck{store: store}
}

// Ping checks that the data directory still exists.
func (h *HealthCheck) Ping(_ context.Context) error {
	info, err := os.Stat(h.store.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", h.store.dir)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "storage"
}
