package postgres

import (
	"context"

	"commonthread/internal/domain/story"
	apperrors "commonthread/pkg/errors"

	"github.com/jackc/pgx/v5"
)

const storyColumns = `s.id, s.project_id, s.storyteller, s.curator_id, s.date, s.text_content, s.audio_key, s.image_key, s.summary`

type StoryRepository struct {
	db *DB
}

func NewStoryRepository(db *DB) *StoryRepository {
	return &StoryRepository{db: db}
}

func scanStory(row pgx.Row) (*story.Story, error) {
	s := &story.Story{}
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.Storyteller, &s.CuratorID, &s.Date,
		&s.TextContent, &s.AudioKey, &s.ImageKey, &s.Summary,
	)
	return s, err
}

func (r *StoryRepository) Create(ctx context.Context, input story.CreateStoryInput) (*story.Story, error) {
	query := `
		INSERT INTO stories AS s (project_id, storyteller, curator_id, date, text_content, audio_key, image_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + storyColumns

	s, err := scanStory(r.db.conn(ctx).QueryRow(ctx, query,
		input.ProjectID, input.Storyteller, input.CuratorID, input.Date,
		input.TextContent, input.AudioKey, input.ImageKey,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			if input.CuratorID != nil {
				return nil, apperrors.NotFound(errCuratorNotFound).WithCode(apperrors.CodeUserNotFound)
			}
			return nil, apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
		}
		return nil, errFailedCreateStory(err)
	}
	return s, nil
}

func (r *StoryRepository) GetByID(ctx context.Context, id int64) (*story.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories s WHERE s.id = $1`

	s, err := scanStory(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errStoryNotFound).WithCode(apperrors.CodeStoryNotFound)
		}
		return nil, errFailedGetStory(err)
	}
	return s, nil
}

func (r *StoryRepository) List(ctx context.Context, filter story.Filter) ([]*story.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories s`
	var args []any

	switch {
	case filter.StoryID != nil:
		query += ` WHERE s.id = $1`
		args = append(args, *filter.StoryID)
	case filter.ProjectID != nil:
		query += ` WHERE s.project_id = $1`
		args = append(args, *filter.ProjectID)
	case filter.OrgID != nil:
		query += ` JOIN projects p ON p.id = s.project_id WHERE p.org_id = $1`
		args = append(args, *filter.OrgID)
	case filter.CuratorID != nil:
		query += ` WHERE s.curator_id = $1`
		args = append(args, *filter.CuratorID)
	}
	query += ` ORDER BY s.id`

	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, errFailedListStories(err)
	}
	defer rows.Close()

	var stories []*story.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, errFailedScanStory(err)
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedListStories(err)
	}
	return stories, nil
}

func (r *StoryRepository) Update(ctx context.Context, id int64, input story.UpdateStoryInput) error {
	query := `
		UPDATE stories SET
			storyteller  = COALESCE($2, storyteller),
			curator_id   = COALESCE($3, curator_id),
			date         = COALESCE($4, date),
			text_content = COALESCE($5, text_content),
			summary      = COALESCE($6, summary)
		WHERE id = $1
	`

	result, err := r.db.conn(ctx).Exec(ctx, query, id,
		input.Storyteller, input.CuratorID, input.Date, input.TextContent, input.Summary,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound(errCuratorNotFound).WithCode(apperrors.CodeUserNotFound)
		}
		return errFailedUpdateStory(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errStoryNotFound).WithCode(apperrors.CodeStoryNotFound)
	}
	return nil
}

func (r *StoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return errFailedDeleteStory(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errStoryNotFound).WithCode(apperrors.CodeStoryNotFound)
	}
	return nil
}
