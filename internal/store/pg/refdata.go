package pg

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"mop.org/internal/domain"
	"mop.org/internal/refdata"
)

// BusinessParamStore implements refdata.Store.
type BusinessParamStore struct {
	s *Store
}

var _ refdata.Store = (*BusinessParamStore)(nil)

// BusinessParams returns the reference-data store view.
func (s *Store) BusinessParams() *BusinessParamStore { return &BusinessParamStore{s: s} }

func codeConflict(err error, kind, code string) error {
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return domain.Conflict("%s code %s already exists", kind, code)
	}
	return err
}

func applyFilter(b sq.SelectBuilder, f refdata.Filter, withRisk bool) sq.SelectBuilder {
	if f.Search != "" {
		pattern := containsPattern(f.Search)
		b = b.Where(sq.Or{sq.ILike{"name": pattern}, sq.ILike{"code": pattern}})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if withRisk && f.RiskLevel != "" {
		b = b.Where(sq.Eq{"risk_level": f.RiskLevel})
	}
	return b
}

// business types

var businessTypeColumns = []string{"id", "code", "name", "description", "status", "created_at", "updated_at"}

func (b *BusinessParamStore) CreateBusinessType(ctx context.Context, bt refdata.BusinessType) error {
	_, err := exec(ctx, b.s.db, psql.Insert("business_types").Columns(businessTypeColumns...).
		Values(bt.ID, bt.Code, bt.Name, bt.Description, bt.Status, bt.CreatedAt, bt.UpdatedAt))
	return codeConflict(err, "business type", bt.Code)
}

func (b *BusinessParamStore) UpdateBusinessType(ctx context.Context, bt refdata.BusinessType) error {
	err := execAffecting(ctx, b.s.db, psql.Update("business_types").SetMap(map[string]any{
		"code":        bt.Code,
		"name":        bt.Name,
		"description": bt.Description,
		"status":      bt.Status,
		"updated_at":  bt.UpdatedAt,
	}).Where(sq.Eq{"id": bt.ID}), "business type", bt.ID)
	return codeConflict(err, "business type", bt.Code)
}

func (b *BusinessParamStore) DeleteBusinessType(ctx context.Context, id string) error {
	return execAffecting(ctx, b.s.db, psql.Delete("business_types").Where(sq.Eq{"id": id}), "business type", id)
}

func (b *BusinessParamStore) FindBusinessType(ctx context.Context, id string) (refdata.BusinessType, error) {
	var bt refdata.BusinessType
	err := scanOne(ctx, b.s.db, psql.Select(businessTypeColumns...).From("business_types").Where(sq.Eq{"id": id}),
		&bt.ID, &bt.Code, &bt.Name, &bt.Description, &bt.Status, &bt.CreatedAt, &bt.UpdatedAt)
	return bt, mapNoRows(err, "business type", id)
}

func (b *BusinessParamStore) ListBusinessTypes(ctx context.Context, f refdata.Filter) ([]refdata.BusinessType, error) {
	rows, err := query(ctx, b.s.db, applyFilter(
		psql.Select(businessTypeColumns...).From("business_types"), f, false).OrderBy("code"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []refdata.BusinessType{}
	for rows.Next() {
		var bt refdata.BusinessType
		if err := rows.Scan(&bt.ID, &bt.Code, &bt.Name, &bt.Description, &bt.Status, &bt.CreatedAt, &bt.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, bt)
	}
	return out, rows.Err()
}

// merchant categories

var merchantCategoryColumns = []string{"id", "code", "name", "description", "risk_level", "status", "created_at", "updated_at"}

func (b *BusinessParamStore) CreateMerchantCategory(ctx context.Context, mc refdata.MerchantCategory) error {
	_, err := exec(ctx, b.s.db, psql.Insert("merchant_categories").Columns(merchantCategoryColumns...).
		Values(mc.ID, mc.Code, mc.Name, mc.Description, mc.RiskLevel, mc.Status, mc.CreatedAt, mc.UpdatedAt))
	return codeConflict(err, "merchant category", mc.Code)
}

func (b *BusinessParamStore) UpdateMerchantCategory(ctx context.Context, mc refdata.MerchantCategory) error {
	err := execAffecting(ctx, b.s.db, psql.Update("merchant_categories").SetMap(map[string]any{
		"code":        mc.Code,
		"name":        mc.Name,
		"description": mc.Description,
		"risk_level":  mc.RiskLevel,
		"status":      mc.Status,
		"updated_at":  mc.UpdatedAt,
	}).Where(sq.Eq{"id": mc.ID}), "merchant category", mc.ID)
	return codeConflict(err, "merchant category", mc.Code)
}

func (b *BusinessParamStore) DeleteMerchantCategory(ctx context.Context, id string) error {
	return execAffecting(ctx, b.s.db, psql.Delete("merchant_categories").Where(sq.Eq{"id": id}), "merchant category", id)
}

func (b *BusinessParamStore) FindMerchantCategory(ctx context.Context, id string) (refdata.MerchantCategory, error) {
	var mc refdata.MerchantCategory
	err := scanOne(ctx, b.s.db, psql.Select(merchantCategoryColumns...).From("merchant_categories").Where(sq.Eq{"id": id}),
		&mc.ID, &mc.Code, &mc.Name, &mc.Description, &mc.RiskLevel, &mc.Status, &mc.CreatedAt, &mc.UpdatedAt)
	return mc, mapNoRows(err, "merchant category", id)
}

func (b *BusinessParamStore) ListMerchantCategories(ctx context.Context, f refdata.Filter) ([]refdata.MerchantCategory, error) {
	rows, err := query(ctx, b.s.db, applyFilter(
		psql.Select(merchantCategoryColumns...).From("merchant_categories"), f, true).OrderBy("code"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []refdata.MerchantCategory{}
	for rows.Next() {
		var mc refdata.MerchantCategory
		if err := rows.Scan(&mc.ID, &mc.Code, &mc.Name, &mc.Description, &mc.RiskLevel, &mc.Status, &mc.CreatedAt, &mc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// risk categories

var riskCategoryColumns = []string{"id", "level", "name", "score_range", "description", "actions_required", "created_at", "updated_at"}

func levelConflict(err error, level int) error {
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return domain.Conflict("risk category level %d already exists", level)
	}
	return err
}

func (b *BusinessParamStore) CreateRiskCategory(ctx context.Context, rc refdata.RiskCategory) error {
	_, err := exec(ctx, b.s.db, psql.Insert("risk_categories").Columns(riskCategoryColumns...).
		Values(rc.ID, rc.Level, rc.Name, rc.ScoreRange, rc.Description, rc.ActionsRequired, rc.CreatedAt, rc.UpdatedAt))
	return levelConflict(err, rc.Level)
}

func (b *BusinessParamStore) UpdateRiskCategory(ctx context.Context, rc refdata.RiskCategory) error {
	err := execAffecting(ctx, b.s.db, psql.Update("risk_categories").SetMap(map[string]any{
		"level":            rc.Level,
		"name":             rc.Name,
		"score_range":      rc.ScoreRange,
		"description":      rc.Description,
		"actions_required": rc.ActionsRequired,
		"updated_at":       rc.UpdatedAt,
	}).Where(sq.Eq{"id": rc.ID}), "risk category", rc.ID)
	return levelConflict(err, rc.Level)
}

func (b *BusinessParamStore) DeleteRiskCategory(ctx context.Context, id string) error {
	return execAffecting(ctx, b.s.db, psql.Delete("risk_categories").Where(sq.Eq{"id": id}), "risk category", id)
}

func (b *BusinessParamStore) FindRiskCategory(ctx context.Context, id string) (refdata.RiskCategory, error) {
	var rc refdata.RiskCategory
	err := scanOne(ctx, b.s.db, psql.Select(riskCategoryColumns...).From("risk_categories").Where(sq.Eq{"id": id}),
		&rc.ID, &rc.Level, &rc.Name, &rc.ScoreRange, &rc.Description, &rc.ActionsRequired, &rc.CreatedAt, &rc.UpdatedAt)
	return rc, mapNoRows(err, "risk category", id)
}

func (b *BusinessParamStore) ListRiskCategories(ctx context.Context) ([]refdata.RiskCategory, error) {
	rows, err := query(ctx, b.s.db, psql.Select(riskCategoryColumns...).From("risk_categories").OrderBy("level"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []refdata.RiskCategory{}
	for rows.Next() {
		var rc refdata.RiskCategory
		if err := rows.Scan(&rc.ID, &rc.Level, &rc.Name, &rc.ScoreRange, &rc.Description, &rc.ActionsRequired, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
