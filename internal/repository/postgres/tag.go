package postgres

import (
	"context"

	"commonthread/internal/domain/tag"
	apperrors "commonthread/pkg/errors"
)

type TagRepository struct {
	db *DB
}

func NewTagRepository(db *DB) *TagRepository {
	return &TagRepository{db: db}
}

// GetOrCreate uses a no-op update on conflict so RETURNING yields the
// existing row.
func (r *TagRepository) GetOrCreate(ctx context.Context, key tag.Key) (*tag.Tag, error) {
	query := `
		INSERT INTO tags (name, value, required, created_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name, value, required, created_by) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, value, required, created_by
	`

	t := &tag.Tag{}
	err := r.db.conn(ctx).QueryRow(ctx, query, key.Name, key.Value, key.Required, key.CreatedBy).Scan(
		&t.ID, &t.Name, &t.Value, &t.Required, &t.CreatedBy,
	)
	if err != nil {
		return nil, errFailedGetOrCreateTag(err)
	}
	return t, nil
}

func (r *TagRepository) AttachToStory(ctx context.Context, storyID, tagID int64) error {
	return r.attach(ctx, `INSERT INTO story_tags (story_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, storyID, tagID)
}

func (r *TagRepository) AttachToProject(ctx context.Context, projectID, tagID int64) error {
	return r.attach(ctx, `INSERT INTO project_tags (project_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, projectID, tagID)
}

func (r *TagRepository) attach(ctx context.Context, query string, ownerID, tagID int64) error {
	if _, err := r.db.conn(ctx).Exec(ctx, query, ownerID, tagID); err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound(errTagNotFound)
		}
		return errFailedAttachTag(err)
	}
	return nil
}

func (r *TagRepository) ListForStory(ctx context.Context, storyID int64) ([]tag.Tag, error) {
	return r.list(ctx, `
		SELECT t.id, t.name, t.value, t.required, t.created_by
		FROM tags t JOIN story_tags st ON st.tag_id = t.id
		WHERE st.story_id = $1 ORDER BY t.id
	`, storyID)
}

func (r *TagRepository) ListForProject(ctx context.Context, projectID int64) ([]tag.Tag, error) {
	return r.list(ctx, `
		SELECT t.id, t.name, t.value, t.required, t.created_by
		FROM tags t JOIN project_tags pt ON pt.tag_id = t.id
		WHERE pt.project_id = $1 ORDER BY t.id
	`, projectID)
}

func (r *TagRepository) list(ctx context.Context, query string, ownerID int64) ([]tag.Tag, error) {
	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID)
	if err != nil {
		return nil, errFailedListTags(err)
	}
	defer rows.Close()

	var tags []tag.Tag
	for rows.Next() {
		var t tag.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Value, &t.Required, &t.CreatedBy); err != nil {
			return nil, errFailedScanTag(err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedListTags(err)
	}
	return tags, nil
}
