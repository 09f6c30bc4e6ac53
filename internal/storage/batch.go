// ABOUTME: Batched insert-or-ignore execution shared by every record kind.
// ABOUTME: One transaction per batch, with a row-at-a-time fallback on commit failure.
package storage

// insertIgnore executes an insert-or-ignore statement for each row inside a
// single transaction and returns the number of rows actually inserted
// (conflicts on the natural key count as zero). If the transaction cannot
// commit, each row is retried on its own so a single bad row cannot sink
// the rest of the batch.
func (d *DB) insertIgnore(query string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	q := d.rebind(query)

	created, err := d.insertIgnoreTx(q, rows)
	if err == nil {
		return created, nil
	}

	created = 0
	for _, args := range rows {
		res, err := d.db.Exec(q, args...)
		if err != nil {
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	return created, nil
}

func (d *DB) insertIgnoreTx(query string, rows [][]any) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}

	created := 0
	for _, args := range rows {
		res, err := tx.Exec(query, args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}
