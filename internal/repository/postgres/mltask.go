package postgres

import (
	"context"
	"time"

	"commonthread/internal/domain/mltask"
	apperrors "commonthread/pkg/errors"
)

const taskColumns = `id, task_type, story_id, project_id, status, updated_at`

type MLTaskRepository struct {
	db *DB
}

func NewMLTaskRepository(db *DB) *MLTaskRepository {
	return &MLTaskRepository{db: db}
}

// UpsertStatus is atomic per scope, so duplicate deliveries converge on one
// row.
func (r *MLTaskRepository) UpsertStatus(ctx context.Context, scope mltask.Scope, status mltask.Status) (*mltask.Task, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperrors.BadRequest(errTaskScopeInvalid + ": " + err.Error())
	}

	conflict := `(task_type, story_id) WHERE story_id IS NOT NULL`
	if scope.ProjectID != nil {
		conflict = `(task_type, project_id) WHERE project_id IS NOT NULL`
	}
	query := `
		INSERT INTO ml_tasks (task_type, story_id, project_id, status, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT ` + conflict + `
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		RETURNING ` + taskColumns

	t := &mltask.Task{}
	err := r.db.conn(ctx).QueryRow(ctx, query, scope.Type, scope.StoryID, scope.ProjectID, status).Scan(
		&t.ID, &t.Type, &t.StoryID, &t.ProjectID, &t.Status, &t.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperrors.NotFound(errTaskOwnerMissing)
		}
		return nil, errFailedUpsertTask(err)
	}
	return t, nil
}

func (r *MLTaskRepository) ListForStory(ctx context.Context, storyID, projectID int64) ([]*mltask.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM ml_tasks WHERE story_id = $1 OR project_id = $2 ORDER BY id`

	rows, err := r.db.conn(ctx).Query(ctx, query, storyID, projectID)
	if err != nil {
		return nil, errFailedListTasks(err)
	}
	defer rows.Close()

	var tasks []*mltask.Task
	for rows.Next() {
		t := &mltask.Task{}
		if err := rows.Scan(&t.ID, &t.Type, &t.StoryID, &t.ProjectID, &t.Status, &t.UpdatedAt); err != nil {
			return nil, errFailedScanTask(err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedListTasks(err)
	}
	return tasks, nil
}

func (r *MLTaskRepository) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE ml_tasks SET status = $1, updated_at = now()
		WHERE status = $2 AND updated_at < $3
	`

	result, err := r.db.conn(ctx).Exec(ctx, query, mltask.StatusFailed, mltask.StatusProcessing, cutoff)
	if err != nil {
		return 0, errFailedFailStaleTask(err)
	}
	return result.RowsAffected(), nil
}
