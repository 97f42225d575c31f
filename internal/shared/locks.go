package shared

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Advisory lock keys for sequence generation critical sections. Reference
// numbers and batch numbers are read-max-then-insert sequences, so writers
// serialise on these keys for the duration of their transaction.
const (
	LockReferenceSequence int64 = 0x4C4D_0001
	LockBatchSequence     int64 = 0x4C4D_0002
	LockSKUSequence       int64 = 0x4C4D_0003
)

// AdvisoryXactLock acquires a transaction-scoped postgres advisory lock. The
// lock is released automatically on commit or rollback.
func AdvisoryXactLock(ctx context.Context, tx pgx.Tx, key int64) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key)
	return err
}
