package health

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/carepath/pkg/audit"
)

// LibraryCounter reports how many condition libraries are loaded.
type LibraryCounter interface {
	Count() int
}

// LibraryCheck fails while no library is loaded.
func LibraryCheck(libraries LibraryCounter) CheckFunc {
	return func(ctx context.Context) error {
		if libraries.Count() == 0 {
			return errors.New("no condition libraries loaded")
		}
		return nil
	}
}

// StorageCheck fails when the audit storage cannot be queried.
func StorageCheck(storage audit.Storage) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := storage.Count(ctx, &audit.Query{}); err != nil {
			return fmt.Errorf("audit storage unavailable: %w", err)
		}
		return nil
	}
}
