package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, t := range tables {
			q := db.NewCreateTable().Model(t.model).IfNotExists()
			for _, fk := range t.foreignKeys {
				q = q.ForeignKey(fk)
			}
			if _, err := q.Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for i := len(tables) - 1; i >= 0; i-- {
			if _, err := db.NewDropTable().Model(tables[i].model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
