package remote

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
	_ "github.com/lib/pq"
)

// PostgresBackend serves the same contract as the REST backend against the
// tasks table directly, for deployments that sit next to the database.
type PostgresBackend struct {
	db     *sql.DB
	userID string
}

func NewPostgresBackend(dsn, userID string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &PostgresBackend{db: db, userID: userID}, nil
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

const taskColumns = `id, text, category, startdate, enddate, status, pinned,
	completed_at, finished_at, created_at, updated_at`

func (b *PostgresBackend) ListTasks(ctx context.Context) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := b.db.QueryContext(ctx, query, b.userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tasks, nil
}

func (b *PostgresBackend) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	query := `INSERT INTO tasks (id, user_id, text, category, startdate, enddate, status, pinned,
		completed_at, finished_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := b.db.ExecContext(ctx, query,
		t.ID, b.userID, t.Text, string(t.Category), t.StartDate, t.EndDate,
		string(t.Status), t.Pinned, t.CompletedAt, t.FinishedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return t, nil
}

func (b *PostgresBackend) UpdateTask(ctx context.Context, id string, p model.Patch) error {
	if len(p) == 0 {
		return nil
	}
	// Deterministic column order keeps the statement stable across calls.
	cols := make([]string, 0, len(p))
	for col := range p {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+2)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, p[col])
	}
	args = append(args, id, b.userID)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), len(cols)+1, len(cols)+2)

	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return nil
}

func (b *PostgresBackend) DeleteTask(ctx context.Context, id string) error {
	res, err := b.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, b.userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return nil
}

func scanTask(rows *sql.Rows) (model.Task, error) {
	var (
		t                   model.Task
		category, status    string
		completed, finished sql.NullTime
	)
	err := rows.Scan(&t.ID, &t.Text, &category, &t.StartDate, &t.EndDate, &status,
		&t.Pinned, &completed, &finished, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}
	t.Category = model.Category(category)
	t.Status = model.Status(status)
	if completed.Valid {
		v := completed.Time
		t.CompletedAt = &v
	}
	if finished.Valid {
		v := finished.Time
		t.FinishedAt = &v
	}
	return t, nil
}
