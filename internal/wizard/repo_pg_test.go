package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateInsertsAllColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	session := Session{
		ID:        "session-1",
		UserID:    "guest:u1",
		Step:      StepBrainstorm,
		RawInput:  "raw",
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(
			session.ID,
			session.UserID,
			0,
			session.RawInput,
			"",
			"",
			nil, // fit_analysis
			nil, // resume_draft
			nil, // upload_keys
			"",
			false,
			"",
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateMarshalsArtifacts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	session := Session{
		ID:     "session-1",
		UserID: "guest:u1",
		Step:   StepFitResult,
		FitAnalysis: &FitAnalysis{
			Score:      82,
			Comparison: []FitComparison{{Trait: "t", Requirement: "r"}},
			Conclusion: ConclusionPossibleMatch,
		},
	}

	mock.ExpectExec("UPDATE sessions").
		WithArgs(
			2,
			"",
			"",
			"",
			sqlmock.AnyArg(), // fit_analysis jsonb
			nil,              // resume_draft jsonb
			nil,              // upload_keys jsonb
			"",
			false,
			"",
			session.ID,
			session.UserID,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Update(context.Background(), session); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateMissingRowReturnsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("UPDATE sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Update(context.Background(), Session{ID: "missing", UserID: "guest:u1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetByIDScansArtifacts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "step", "raw_input", "experience_doc", "job_description",
		"fit_analysis", "resume_draft", "upload_keys", "final_resume", "accepted", "export_key",
		"created_at", "updated_at",
	}).AddRow(
		"session-1", "guest:u1", 2, "raw", "doc", "jd",
		`{"score": 82, "comparison": [{"trait": "t", "requirement": "r"}], "conclusion": "possible_match"}`,
		nil, `["guest-hash/abc_resume.pdf"]`, "", false, "",
		now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs("session-1", "guest:u1").
		WillReturnRows(rows)

	session, err := repo.GetByID(context.Background(), "guest:u1", "session-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if session.Step != StepFitResult {
		t.Fatalf("step = %v", session.Step)
	}
	if session.FitAnalysis == nil || session.FitAnalysis.Score != 82 {
		t.Fatalf("fitAnalysis = %+v", session.FitAnalysis)
	}
	if session.ResumeDraft != nil {
		t.Fatalf("resumeDraft = %+v, want nil", session.ResumeDraft)
	}
	if len(session.UploadKeys) != 1 || session.UploadKeys[0] != "guest-hash/abc_resume.pdf" {
		t.Fatalf("uploadKeys = %+v", session.UploadKeys)
	}
}

func TestPGRepoGetByIDNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs("missing", "guest:u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "guest:u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
