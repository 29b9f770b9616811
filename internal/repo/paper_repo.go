package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/papershelf/internal/pkg/dbutil"
	appErr "github.com/xxxsen/papershelf/internal/pkg/errors"
)

// latestOrder pins "latest" to the byte-wise string ordering of date, newest
// insert first on ties.
const latestOrder = "date desc, rowid desc"

var (
	paperColumns   = []string{"id", "title", "authors", "tags", "date", "paperLink", "sections"}
	summaryColumns = []string{"id", "title", "authors", "tags", "date", "paperLink"}
)

type PaperRepo struct {
	handle *Handle
}

func NewPaperRepo(handle *Handle) *PaperRepo {
	return &PaperRepo{handle: handle}
}

func (r *PaperRepo) Create(ctx context.Context, row *PaperRow) error {
	db, err := r.handle.Acquire(ctx)
	if err != nil {
		return err
	}
	sqlStr, args, err := builder.BuildInsert(papersTable, []map[string]interface{}{row.toMap()})
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return fmt.Errorf("paper %s: %w", row.ID, appErr.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *PaperRepo) GetByID(ctx context.Context, id string) (*PaperRow, error) {
	where := map[string]interface{}{
		"id": id,
	}
	return r.getOne(ctx, where)
}

func (r *PaperRepo) GetLatest(ctx context.Context) (*PaperRow, error) {
	where := map[string]interface{}{
		"_orderby": latestOrder,
		"_limit":   []uint{0, 1},
	}
	return r.getOne(ctx, where)
}

func (r *PaperRepo) getOne(ctx context.Context, where map[string]interface{}) (*PaperRow, error) {
	db, err := r.handle.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	sqlStr, args, err := builder.BuildSelect(papersTable, where, paperColumns)
	if err != nil {
		return nil, err
	}
	var record paperRecord
	if err := db.GetContext(ctx, &record, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrDocumentNotFound
		}
		return nil, err
	}
	row := record.toRow()
	return &row, nil
}

// ListSummaries returns every paper without its sections column, latest first.
func (r *PaperRepo) ListSummaries(ctx context.Context) ([]PaperRow, error) {
	db, err := r.handle.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	where := map[string]interface{}{
		"_orderby": latestOrder,
	}
	sqlStr, args, err := builder.BuildSelect(papersTable, where, summaryColumns)
	if err != nil {
		return nil, err
	}
	records := make([]paperRecord, 0)
	if err := db.SelectContext(ctx, &records, sqlStr, args...); err != nil {
		return nil, err
	}
	rows := make([]PaperRow, 0, len(records))
	for i := range records {
		rows = append(rows, records[i].toRow())
	}
	return rows, nil
}

// SwapSections writes next only if the stored sections column still equals
// prev. ErrConflict means another writer got there first.
func (r *PaperRepo) SwapSections(ctx context.Context, id, prev, next string) error {
	db, err := r.handle.Acquire(ctx)
	if err != nil {
		return err
	}
	where := map[string]interface{}{
		"id":       id,
		"sections": prev,
	}
	update := map[string]interface{}{
		"sections": next,
	}
	sqlStr, args, err := builder.BuildUpdate(papersTable, where, update)
	if err != nil {
		return err
	}
	result, err := db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrConflict
	}
	return nil
}

// ReplaceAll deletes every paper and inserts rows in one transaction.
func (r *PaperRepo) ReplaceAll(ctx context.Context, rows []*PaperRow) error {
	db, err := r.handle.Acquire(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM papers"); err != nil {
		return fmt.Errorf("clear papers: %w", err)
	}
	if len(rows) > 0 {
		data := make([]map[string]interface{}, 0, len(rows))
		for _, row := range rows {
			data = append(data, row.toMap())
		}
		sqlStr, args, err := builder.BuildInsert(papersTable, data)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("insert papers: %w", err)
		}
	}
	return tx.Commit()
}

func (r *PaperRepo) Count(ctx context.Context) (int, error) {
	db, err := r.handle.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(1) FROM papers"); err != nil {
		return 0, err
	}
	return count, nil
}
