package hospital

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Models lists the tables owned by this module, in creation order
func Models() []any {
	return []any{
		(*Account)(nil),
		(*Appointment)(nil),
		(*Prescription)(nil),
	}
}

// Migrate creates missing tables and indexes
func Migrate(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table")
		}
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*Account)(nil), "accounts_role_idx", "role"},
		{(*Appointment)(nil), "appointments_patient_id_idx", "patient_id"},
		{(*Prescription)(nil), "prescriptions_patient_id_idx", "patient_id"},
	}

	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			IfNotExists().
			Column(idx.column).
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create index").
				WithMetadata(map[string]any{"index": idx.name})
		}
	}

	return nil
}
