package pg

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mop.org/internal/cases"
	"mop.org/internal/domain"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db), mock
}

var caseRowColumns = []string{
	"id", "business_name", "business_type", "registration_number", "merchant_category",
	"business_address", "director_name", "director_ic", "director_phone", "director_email",
	"status", "assigned_to", "priority", "created_date", "last_updated", "created_at", "updated_at",
}

func caseRow(id string, assigned driver.Value, created time.Time) []driver.Value {
	return []driver.Value{
		id, "Kedai Runcit Ali", "Sole Proprietorship", "REG-1", "Retail",
		"1 Jalan Ampang", "Ali", "900101-14-5555", "0123456789", "ali@example.com",
		"Pending Review", assigned, "Normal", "2026-10-19", "2026-10-19 10:00", created, created,
	}
}

func sampleCase() cases.Case {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	return cases.Case{
		ID:           "MOP-2026-001",
		BusinessName: "Kedai Runcit Ali",
		Status:       cases.StatusPendingReview,
		Priority:     cases.DefaultPriority,
		CreatedDate:  "2026-10-19",
		LastUpdated:  "2026-10-19 10:00",
		Documents:    []cases.Document{{Name: "ssm.pdf", Type: "registration", UploadedAt: now}},
		History:      []cases.HistoryEntry{{Time: "2026-10-19 10:00", Action: "Case created"}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCaseStoreCreateWritesOneTransaction(t *testing.T) {
	store, mock := newMock(t)
	c := sampleCase()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cases").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO case_documents").
		WithArgs(c.ID, "ssm.pdf", "registration", c.Documents[0].UploadedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO case_history").
		WithArgs(c.ID, "2026-10-19 10:00", "Case created").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Cases().Create(context.Background(), c))
}

func TestCaseStoreCreateDuplicateIsConflict(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cases").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	mock.ExpectRollback()

	err := store.Cases().Create(context.Background(), sampleCase())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCaseStoreUpdateMissingIsNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cases SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Cases().Update(context.Background(), sampleCase(), nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCaseStoreUpdateAppendsHistory(t *testing.T) {
	store, mock := newMock(t)
	c := sampleCase()
	c.Status = cases.StatusApproved

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cases SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO case_history").
		WithArgs(c.ID, "2026-10-20 09:00", "Status changed to Approved").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := store.Cases().Update(context.Background(), c, []cases.HistoryEntry{
		{Time: "2026-10-20 09:00", Action: "Status changed to Approved"},
	})
	require.NoError(t, err)
}

func TestCaseStoreFindByIDLoadsDocumentsAndHistory(t *testing.T) {
	store, mock := newMock(t)
	created := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM cases WHERE id = \$1`).
		WithArgs("MOP-2026-001").
		WillReturnRows(sqlmock.NewRows(caseRowColumns).AddRow(caseRow("MOP-2026-001", nil, created)...))
	mock.ExpectQuery(`FROM case_documents WHERE case_id IN \(\$1\) ORDER BY id`).
		WithArgs("MOP-2026-001").
		WillReturnRows(sqlmock.NewRows([]string{"case_id", "name", "type", "uploaded_at"}).
			AddRow("MOP-2026-001", "ssm.pdf", "registration", created))
	mock.ExpectQuery(`FROM case_history WHERE case_id IN \(\$1\) ORDER BY id`).
		WithArgs("MOP-2026-001").
		WillReturnRows(sqlmock.NewRows([]string{"case_id", "time", "action"}).
			AddRow("MOP-2026-001", "2026-10-19 10:00", "Case created").
			AddRow("MOP-2026-001", "2026-10-19 11:00", "Status changed to In Review"))

	got, err := store.Cases().FindByID(context.Background(), "MOP-2026-001")
	require.NoError(t, err)
	assert.Equal(t, cases.StatusPendingReview, got.Status)
	assert.Empty(t, got.AssignedTo)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "ssm.pdf", got.Documents[0].Name)
	require.Len(t, got.History, 2)
	assert.Equal(t, "Status changed to In Review", got.History[1].Action)
}

func TestCaseStoreFindByIDMissing(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM cases WHERE id = \$1`).
		WithArgs("MOP-2026-404").
		WillReturnRows(sqlmock.NewRows(caseRowColumns))

	_, err := store.Cases().FindByID(context.Background(), "MOP-2026-404")
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "case", nf.Kind)
}

func TestCaseStoreAllocateSequence(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("insert into case_sequences").
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(7))

	seq, err := store.Cases().AllocateSequence(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, 7, seq)
}

func TestCaseStoreGroupCountByStatusSince(t *testing.T) {
	store, mock := newMock(t)
	since := time.Date(2026, 9, 19, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT status, count\(\*\) FROM cases WHERE created_at >= \$1 GROUP BY status ORDER BY min\(seq\)`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("Pending Review", 3).
			AddRow("Approved", 1))

	got, err := store.Cases().GroupCountByStatusSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, []cases.StatusCount{
		{Status: cases.StatusPendingReview, Count: 3},
		{Status: cases.StatusApproved, Count: 1},
	}, got)
}

func TestCaseStoreSearchEscapesWildcards(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`FROM cases WHERE \(business_name ILIKE \$1 OR business_type ILIKE \$2 OR merchant_category ILIKE \$3\) ORDER BY seq`).
		WithArgs(`%50\%%`, `%50\%%`, `%50\%%`).
		WillReturnRows(sqlmock.NewRows(caseRowColumns))

	got, err := store.Cases().Search(context.Background(), "50%")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCaseStoreAppendHistoryUnknownCase(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO case_history").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	err := store.Cases().AppendHistory(context.Background(), "MOP-2026-404", cases.HistoryEntry{Action: "note"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCaseStoreDeleteMissing(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(`DELETE FROM cases WHERE id = \$1`).
		WithArgs("MOP-2026-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.Cases().Delete(context.Background(), "MOP-2026-404"), domain.ErrNotFound)
}
