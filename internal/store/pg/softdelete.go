package pg

import (
	"context"
	"fmt"

	"gymstack.io/internal/auth"
)

// Tables that delete by tombstone. Access tokens are absent on purpose: token
// rows are hard-deleted on revocation.
var softDeleteTables = map[string]struct{}{
	"organizations": {},
	"gyms":          {},
	"users":         {},
	"roles":         {},
	"employments":   {},
	"memberships":   {},
	"invitations":   {},
}

// tombstone marks a live row deleted. Already-deleted and absent rows are the
// same to the caller: ErrNotFound. The table name is checked against the
// allowlist because it is interpolated into the statement.
func (s *Store) tombstone(ctx context.Context, table, id string) error {
	if _, ok := softDeleteTables[table]; !ok {
		return fmt.Errorf("table %s does not soft-delete", table)
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		update %s set deleted_at = now()
		where id = $1 and deleted_at is null
	`, table), id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}
