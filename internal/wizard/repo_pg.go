package wizard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const sessionColumns = `
id, user_id, step, raw_input, experience_doc, job_description,
fit_analysis, resume_draft, upload_keys, final_resume, accepted, export_key,
created_at, updated_at`

// Create inserts a new session.
func (r *PGRepo) Create(ctx context.Context, session Session) error {
	const query = `
INSERT INTO sessions (
	id, user_id, step, raw_input, experience_doc, job_description,
	fit_analysis, resume_draft, upload_keys, final_resume, accepted, export_key,
	created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

	fitPayload, err := marshalNullableJSONB(session.FitAnalysis)
	if err != nil {
		return err
	}
	draftPayload, err := marshalNullableJSONB(session.ResumeDraft)
	if err != nil {
		return err
	}
	uploadsPayload, err := marshalUploadKeys(session.UploadKeys)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		int(session.Step),
		session.RawInput,
		session.ExperienceDoc,
		session.JobDescription,
		fitPayload,
		draftPayload,
		uploadsPayload,
		session.FinalResume,
		session.Accepted,
		session.ExportKey,
		session.CreatedAt,
	)
	return err
}

// GetByID returns a session scoped to its owner.
func (r *PGRepo) GetByID(ctx context.Context, userID, sessionID string) (Session, error) {
	const query = `
SELECT ` + sessionColumns + `
FROM sessions
WHERE id = $1 AND user_id = $2
LIMIT 1`

	row := r.DB.QueryRowContext(ctx, query, sessionID, userID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return session, nil
}

// Update replaces all mutable fields of an existing session.
func (r *PGRepo) Update(ctx context.Context, session Session) error {
	const query = `
UPDATE sessions
SET step = $1,
    raw_input = $2,
    experience_doc = $3,
    job_description = $4,
    fit_analysis = $5::jsonb,
    resume_draft = $6::jsonb,
    upload_keys = $7::jsonb,
    final_resume = $8,
    accepted = $9,
    export_key = $10,
    updated_at = now()
WHERE id = $11 AND user_id = $12`

	fitPayload, err := marshalNullableJSONB(session.FitAnalysis)
	if err != nil {
		return err
	}
	draftPayload, err := marshalNullableJSONB(session.ResumeDraft)
	if err != nil {
		return err
	}
	uploadsPayload, err := marshalUploadKeys(session.UploadKeys)
	if err != nil {
		return err
	}

	res, err := r.DB.ExecContext(ctx, query,
		int(session.Step),
		session.RawInput,
		session.ExperienceDoc,
		session.JobDescription,
		fitPayload,
		draftPayload,
		uploadsPayload,
		session.FinalResume,
		session.Accepted,
		session.ExportKey,
		session.ID,
		session.UserID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser lists sessions for a user ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT ` + sessionColumns + `
FROM sessions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	var step int
	var experienceDoc sql.NullString
	var jobDescription sql.NullString
	var fitPayload sql.NullString
	var draftPayload sql.NullString
	var uploadsPayload sql.NullString
	var finalResume sql.NullString
	var exportKey sql.NullString

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&step,
		&s.RawInput,
		&experienceDoc,
		&jobDescription,
		&fitPayload,
		&draftPayload,
		&uploadsPayload,
		&finalResume,
		&s.Accepted,
		&exportKey,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return Session{}, err
	}

	s.Step = Step(step)
	if experienceDoc.Valid {
		s.ExperienceDoc = experienceDoc.String
	}
	if jobDescription.Valid {
		s.JobDescription = jobDescription.String
	}
	if fitPayload.Valid && fitPayload.String != "" {
		var fit FitAnalysis
		if err := json.Unmarshal([]byte(fitPayload.String), &fit); err == nil {
			s.FitAnalysis = &fit
		}
	}
	if draftPayload.Valid && draftPayload.String != "" {
		var draft ResumeDraft
		if err := json.Unmarshal([]byte(draftPayload.String), &draft); err == nil {
			s.ResumeDraft = &draft
		}
	}
	if uploadsPayload.Valid && uploadsPayload.String != "" {
		var keys []string
		if err := json.Unmarshal([]byte(uploadsPayload.String), &keys); err == nil {
			s.UploadKeys = keys
		}
	}
	if finalResume.Valid {
		s.FinalResume = finalResume.String
	}
	if exportKey.Valid {
		s.ExportKey = exportKey.String
	}
	return s, nil
}

func marshalNullableJSONB(value any) (any, error) {
	switch v := value.(type) {
	case *FitAnalysis:
		if v == nil {
			return nil, nil
		}
	case *ResumeDraft:
		if v == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	return json.Marshal(value)
}

func marshalUploadKeys(keys []string) (any, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return json.Marshal(keys)
}
