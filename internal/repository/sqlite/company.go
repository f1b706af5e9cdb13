package sqlite

import (
	"context"
	"database/sql"

	"github.com/sboruta/tracker/pkg/models"
)

const companyCols = `id, name, domain, last_modified, deleted_at`

func (s *Store) putCompany(ctx context.Context, c *models.Company) error {
	_, err := s.conn.Exec(ctx, `INSERT INTO companies (`+companyCols+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, domain=excluded.domain,
			last_modified=excluded.last_modified, deleted_at=excluded.deleted_at`,
		c.ID, c.Name, c.Domain, c.Modified, c.DeletedAt)
	return err
}

func scanCompany(sc scanner) (*models.Company, error) {
	var c models.Company
	var deleted sql.NullInt64
	if err := sc.Scan(&c.ID, &c.Name, &c.Domain, &c.Modified, &deleted); err != nil {
		return nil, err
	}
	c.DeletedAt = nullableInt(deleted)
	return &c, nil
}
