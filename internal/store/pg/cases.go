package pg

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"mop.org/internal/cases"
	"mop.org/internal/domain"
)

var caseColumns = []string{
	"id", "business_name", "business_type", "registration_number", "merchant_category",
	"business_address", "director_name", "director_ic", "director_phone", "director_email",
	"status", "assigned_to", "priority", "created_date", "last_updated", "created_at", "updated_at",
}

// CaseStore implements cases.Store.
type CaseStore struct {
	s *Store
}

var _ cases.Store = (*CaseStore)(nil)

// Cases returns the case store view.
func (s *Store) Cases() *CaseStore { return &CaseStore{s: s} }

func (c *CaseStore) Create(ctx context.Context, in cases.Case) error {
	return c.s.inTx(ctx, func(tx *sql.Tx) error {
		insert := psql.Insert("cases").Columns(caseColumns...).Values(
			in.ID, in.BusinessName, in.BusinessType, in.RegistrationNumber, in.MerchantCategory,
			in.BusinessAddress, in.DirectorName, in.DirectorIC, in.DirectorPhone, in.DirectorEmail,
			string(in.Status), nullIfEmpty(in.AssignedTo), in.Priority, in.CreatedDate, in.LastUpdated,
			in.CreatedAt, in.UpdatedAt,
		)
		if _, err := exec(ctx, tx, insert); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return domain.Conflict("case %s already exists", in.ID)
			}
			return err
		}
		if len(in.Documents) > 0 {
			docs := psql.Insert("case_documents").Columns("case_id", "name", "type", "uploaded_at")
			for _, d := range in.Documents {
				docs = docs.Values(in.ID, d.Name, d.Type, d.UploadedAt)
			}
			if _, err := exec(ctx, tx, docs); err != nil {
				return err
			}
		}
		return insertHistory(ctx, tx, in.ID, in.History)
	})
}

func (c *CaseStore) Update(ctx context.Context, in cases.Case, appended []cases.HistoryEntry) error {
	return c.s.inTx(ctx, func(tx *sql.Tx) error {
		update := psql.Update("cases").SetMap(map[string]any{
			"business_name":       in.BusinessName,
			"business_type":       in.BusinessType,
			"registration_number": in.RegistrationNumber,
			"merchant_category":   in.MerchantCategory,
			"business_address":    in.BusinessAddress,
			"director_name":       in.DirectorName,
			"director_ic":         in.DirectorIC,
			"director_phone":      in.DirectorPhone,
			"director_email":      in.DirectorEmail,
			"status":              string(in.Status),
			"assigned_to":         nullIfEmpty(in.AssignedTo),
			"priority":            in.Priority,
			"last_updated":        in.LastUpdated,
			"updated_at":          in.UpdatedAt,
		}).Where(sq.Eq{"id": in.ID})
		if err := execAffecting(ctx, tx, update, "case", in.ID); err != nil {
			return err
		}
		return insertHistory(ctx, tx, in.ID, appended)
	})
}

func insertHistory(ctx context.Context, q querier, caseID string, entries []cases.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	insert := psql.Insert("case_history").Columns("case_id", "time", "action")
	for _, h := range entries {
		insert = insert.Values(caseID, h.Time, h.Action)
	}
	_, err := exec(ctx, q, insert)
	return mapWriteError(err, "case", caseID)
}

func (c *CaseStore) AppendHistory(ctx context.Context, caseID string, entry cases.HistoryEntry) error {
	return insertHistory(ctx, c.s.db, caseID, []cases.HistoryEntry{entry})
}

func (c *CaseStore) FindByID(ctx context.Context, id string) (cases.Case, error) {
	found, err := c.load(ctx, psql.Select(caseColumns...).From("cases").Where(sq.Eq{"id": id}))
	if err != nil {
		return cases.Case{}, err
	}
	if len(found) == 0 {
		return cases.Case{}, domain.NotFound("case", id)
	}
	return found[0], nil
}

func (c *CaseStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := scanOne(ctx, c.s.db, psql.Select().Column(sq.Expr("exists(select 1 from cases where id = ?)", id)), &exists)
	return exists, err
}

func (c *CaseStore) Delete(ctx context.Context, id string) error {
	return execAffecting(ctx, c.s.db, psql.Delete("cases").Where(sq.Eq{"id": id}), "case", id)
}

func (c *CaseStore) FindAll(ctx context.Context, order cases.Order) ([]cases.Case, error) {
	b := psql.Select(caseColumns...).From("cases")
	if order == cases.OrderNewestFirst {
		b = b.OrderBy("created_at desc", "seq desc")
	} else {
		b = b.OrderBy("seq")
	}
	return c.load(ctx, b)
}

func (c *CaseStore) FindByAssignee(ctx context.Context, assignee string) ([]cases.Case, error) {
	return c.load(ctx, psql.Select(caseColumns...).From("cases").
		Where(sq.Eq{"assigned_to": assignee}).OrderBy("seq"))
}

func (c *CaseStore) Search(ctx context.Context, keyword string) ([]cases.Case, error) {
	pattern := containsPattern(keyword)
	return c.load(ctx, psql.Select(caseColumns...).From("cases").
		Where(sq.Or{
			sq.ILike{"business_name": pattern},
			sq.ILike{"business_type": pattern},
			sq.ILike{"merchant_category": pattern},
		}).OrderBy("seq"))
}

func (c *CaseStore) CountAll(ctx context.Context) (int, error) {
	var n int
	err := scanOne(ctx, c.s.db, psql.Select("count(*)").From("cases"), &n)
	return n, err
}

func (c *CaseStore) GroupCountByStatusSince(ctx context.Context, since time.Time) ([]cases.StatusCount, error) {
	rows, err := query(ctx, c.s.db, psql.Select("status", "count(*)").From("cases").
		Where(sq.GtOrEq{"created_at": since}).
		GroupBy("status").
		OrderBy("min(seq)"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []cases.StatusCount
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out = append(out, cases.StatusCount{Status: cases.Status(status), Count: n})
	}
	return out, rows.Err()
}

func (c *CaseStore) AllocateSequence(ctx context.Context, year int) (int, error) {
	var next int
	err := c.s.db.QueryRowContext(ctx, `
		insert into case_sequences (year, last_value)
		values ($1, 1)
		on conflict (year) do update
		set last_value = case_sequences.last_value + 1
		returning last_value
	`, year).Scan(&next)
	return next, err
}

// load runs a case select and attaches documents and history in two batched queries.
func (c *CaseStore) load(ctx context.Context, b sq.SelectBuilder) ([]cases.Case, error) {
	rows, err := query(ctx, c.s.db, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []cases.Case
		ids   []string
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			cs       cases.Case
			status   string
			assigned sql.NullString
		)
		if err := rows.Scan(
			&cs.ID, &cs.BusinessName, &cs.BusinessType, &cs.RegistrationNumber, &cs.MerchantCategory,
			&cs.BusinessAddress, &cs.DirectorName, &cs.DirectorIC, &cs.DirectorPhone, &cs.DirectorEmail,
			&status, &assigned, &cs.Priority, &cs.CreatedDate, &cs.LastUpdated, &cs.CreatedAt, &cs.UpdatedAt,
		); err != nil {
			return nil, err
		}
		cs.Status = cases.Status(status)
		cs.AssignedTo = assigned.String
		cs.Documents = []cases.Document{}
		cs.History = []cases.HistoryEntry{}
		index[cs.ID] = len(out)
		ids = append(ids, cs.ID)
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []cases.Case{}, nil
	}

	docs, err := query(ctx, c.s.db, psql.Select("case_id", "name", "type", "uploaded_at").
		From("case_documents").Where(sq.Eq{"case_id": ids}).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	defer docs.Close()
	for docs.Next() {
		var (
			caseID string
			d      cases.Document
		)
		if err := docs.Scan(&caseID, &d.Name, &d.Type, &d.UploadedAt); err != nil {
			return nil, err
		}
		i := index[caseID]
		out[i].Documents = append(out[i].Documents, d)
	}
	if err := docs.Err(); err != nil {
		return nil, err
	}

	hist, err := query(ctx, c.s.db, psql.Select("case_id", "time", "action").
		From("case_history").Where(sq.Eq{"case_id": ids}).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	defer hist.Close()
	for hist.Next() {
		var (
			caseID string
			h      cases.HistoryEntry
		)
		if err := hist.Scan(&caseID, &h.Time, &h.Action); err != nil {
			return nil, err
		}
		i := index[caseID]
		out[i].History = append(out[i].History, h)
	}
	return out, hist.Err()
}
