package migrations

import (
	"context"
	"fmt"

	"event-ticketing/internal/models"

	"github.com/uptrace/bun"
)

// tables in dependency order: parents before children.
var tables = []interface{}{
	(*models.Event)(nil),
	(*models.Session)(nil),
	(*models.Coupon)(nil),
	(*models.Order)(nil),
	(*models.Ticket)(nil),
}

// Migrate creates every schema table that does not exist yet. Safe to run
// on every startup.
func Migrate(ctx context.Context, db *bun.DB) error {
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// Reset drops and recreates the whole schema. Test and development only.
func Reset(ctx context.Context, db *bun.DB) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tables[i], err)
		}
	}
	return Migrate(ctx, db)
}
