package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const getDataset = `-- name: GetDataset :one
SELECT name, body, updated_at
FROM datasets
WHERE name = $1
`

func (q *Queries) GetDataset(ctx context.Context, name string) (Dataset, error) {
	row := q.db.QueryRow(ctx, getDataset, name)
	var i Dataset
	err := row.Scan(&i.Name, &i.Body, &i.UpdatedAt)
	return i, err
}

const listDatasets = `-- name: ListDatasets :many
SELECT name, body, updated_at
FROM datasets
ORDER BY name
`

func (q *Queries) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := q.db.Query(ctx, listDatasets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Dataset
	for rows.Next() {
		var i Dataset
		if err := rows.Scan(&i.Name, &i.Body, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertDataset = `-- name: UpsertDataset :one
INSERT INTO datasets (name, body, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE
SET body = EXCLUDED.body,
    updated_at = now()
RETURNING name, body, updated_at
`

type UpsertDatasetParams struct {
	Name string
	Body string
}

func (q *Queries) UpsertDataset(ctx context.Context, arg UpsertDatasetParams) (Dataset, error) {
	row := q.db.QueryRow(ctx, upsertDataset, arg.Name, arg.Body)
	var i Dataset
	err := row.Scan(&i.Name, &i.Body, &i.UpdatedAt)
	return i, err
}

const deleteDataset = `-- name: DeleteDataset :execrows
DELETE FROM datasets
WHERE name = $1
`

func (q *Queries) DeleteDataset(ctx context.Context, name string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDataset, name)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
