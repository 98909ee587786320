package db

import "context"

// NextSequenceNumber proposes the next ticket number for a point: the
// maximum over all live tickets plus one, or 1 when none exist. Two
// concurrent callers can receive the same proposal; the unique constraint
// on insert is what arbitrates, not this read. Numbers of purged tickets
// may be handed out again since the rows no longer exist.
func (d *DB) NextSequenceNumber(pointID string) (int64, error) {
	var max int64
	err := d.Bun.NewSelect().
		ColumnExpr("COALESCE(MAX(sequence_number), 0)").
		Table("tickets").
		Where("point_id = ?", pointID).
		Scan(context.Background(), &max)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
