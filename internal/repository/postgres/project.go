package postgres

import (
	"context"

	"commonthread/internal/domain/project"
	apperrors "commonthread/pkg/errors"

	"github.com/jackc/pgx/v5"
)

const projectColumns = `p.id, p.org_id, p.name, p.curator_id, p.date, p.insight`

type ProjectRepository struct {
	db *DB
}

func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func scanProject(row pgx.Row, extra ...any) (*project.Project, error) {
	p := &project.Project{}
	dest := append([]any{&p.ID, &p.OrgID, &p.Name, &p.CuratorID, &p.Date, &p.Insight}, extra...)
	return p, row.Scan(dest...)
}

func (r *ProjectRepository) Create(ctx context.Context, input project.CreateProjectInput) (*project.Project, error) {
	query := `
		INSERT INTO projects AS p (org_id, name, curator_id, date)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + projectColumns

	p, err := scanProject(r.db.conn(ctx).QueryRow(ctx, query, input.OrgID, input.Name, input.CuratorID, input.Date))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, r.missingRef(input.CuratorID)
		}
		return nil, errFailedCreateProject(err)
	}
	return p, nil
}

func (r *ProjectRepository) missingRef(curatorID *int64) error {
	if curatorID != nil {
		return apperrors.NotFound(errCuratorNotFound).WithCode(apperrors.CodeUserNotFound)
	}
	return apperrors.NotFound(errOrgNotFound).WithCode(apperrors.CodeOrgNotFound)
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1`

	p, err := scanProject(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
		}
		return nil, errFailedGetProject(err)
	}
	return p, nil
}

func (r *ProjectRepository) ListByOrg(ctx context.Context, orgID int64) ([]project.Listing, error) {
	query := `
		SELECT ` + projectColumns + `, COUNT(s.id)
		FROM projects p
		LEFT JOIN stories s ON s.project_id = p.id
		WHERE p.org_id = $1
		GROUP BY p.id
		ORDER BY p.id
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, orgID)
	if err != nil {
		return nil, errFailedListProjects(err)
	}
	defer rows.Close()

	var out []project.Listing
	for rows.Next() {
		var count int
		p, err := scanProject(rows, &count)
		if err != nil {
			return nil, errFailedScanProject(err)
		}
		out = append(out, project.Listing{Project: *p, StoryCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedListProjects(err)
	}
	return out, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id int64, input project.UpdateProjectInput) error {
	query := `
		UPDATE projects SET
			name       = COALESCE($2, name),
			curator_id = COALESCE($3, curator_id),
			date       = COALESCE($4, date)
		WHERE id = $1
	`

	result, err := r.db.conn(ctx).Exec(ctx, query, id, input.Name, input.CuratorID, input.Date)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound(errCuratorNotFound).WithCode(apperrors.CodeUserNotFound)
		}
		return errFailedUpdateProject(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
	}
	return nil
}

func (r *ProjectRepository) SetInsight(ctx context.Context, id int64, insight string) error {
	result, err := r.db.conn(ctx).Exec(ctx, `UPDATE projects SET insight = $2 WHERE id = $1`, id, insight)
	if err != nil {
		return errFailedUpdateProject(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return errFailedDeleteProject(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errProjectNotFound).WithCode(apperrors.CodeProjectNotFound)
	}
	return nil
}
