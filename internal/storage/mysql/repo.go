package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"dubaihaus/internal/domain"
	"dubaihaus/internal/normalizer"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
func valList(s []string) any {
	if len(s) == 0 {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// UpsertProject writes the project row and replaces all of its children in one transaction.
func (r *Repo) UpsertProject(ctx context.Context, p domain.Project) error {
	if p.ID <= 0 {
		return fmt.Errorf("upsert project: invalid id %d", p.ID)
	}
	syncedAt := p.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertProjectSQL,
		p.ID, p.Title, valStr(p.Description),
		valStr(p.Sector), valStr(p.District), valStr(p.City), valStr(p.Region),
		valF64(p.Lat), valF64(p.Lon), valStr(p.LocationLabel), valStr(p.Geohash),
		valStr(p.Developer), valStr(p.Status), valStr(p.SaleStatus), valStr(p.ConstructionStatus),
		valF64(p.MinPrice), valF64(p.MaxPrice), p.Currency,
		valInt(p.MinBedrooms), valInt(p.MaxBedrooms), valStr(p.BedroomsLabel),
		valF64(p.MinArea), valF64(p.MaxArea), p.AreaUnit,
		valTime(p.CompletionDate), valTime(p.HandoverDate), valStr(p.CoverImage), p.IsFeatured,
		valList(p.Media), valList(p.Amenities), valJSON(p.POIJSON), valJSON(p.RawJSON),
		syncedAt.UTC(),
	); err != nil {
		return fmt.Errorf("upsert project %d: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, deletePaymentPlansSQL, p.ID); err != nil {
		return fmt.Errorf("clear payment plans %d: %w", p.ID, err)
	}
	if _, err := tx.ExecContext(ctx, deletePropertyTypesSQL, p.ID); err != nil {
		return fmt.Errorf("clear property types %d: %w", p.ID, err)
	}

	if len(p.PaymentPlans) > 0 {
		values := make([]string, 0, len(p.PaymentPlans))
		args := make([]any, 0, len(p.PaymentPlans)*4)
		for i, pl := range p.PaymentPlans {
			values = append(values, "(?,?,?,?)")
			args = append(args, p.ID, i, valStr(pl.Name), valJSON(pl.RawJSON))
		}
		if _, err := tx.ExecContext(ctx, insertPaymentPlansPrefix+strings.Join(values, ","), args...); err != nil {
			return fmt.Errorf("insert payment plans %d: %w", p.ID, err)
		}
	}
	if len(p.UnitTypes) > 0 {
		values := make([]string, 0, len(p.UnitTypes))
		args := make([]any, 0, len(p.UnitTypes)*7)
		for i, u := range p.UnitTypes {
			values = append(values, "(?,?,?,?,?,?,?)")
			args = append(args, p.ID, i, u.Type, valF64(u.StartingPrice), valF64(u.StartingArea),
				valInt(u.Bedrooms), valJSON(u.RawJSON))
		}
		if _, err := tx.ExecContext(ctx, insertPropertyTypesPrefix+strings.Join(values, ","), args...); err != nil {
			return fmt.Errorf("insert property types %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (r *Repo) CountProjects(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countProjectsSQL).Scan(&n)
	return n, err
}

// QueryProjects returns one window of matching projects and the total match count.
func (r *Repo) QueryProjects(ctx context.Context, f domain.ListingFilters, now time.Time) ([]domain.ProjectView, int, error) {
	where, args := buildFilters(f, now)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects p"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}
	if total == 0 {
		return []domain.ProjectView{}, 0, nil
	}

	_, size, offset := f.Window()
	q := "SELECT" + listColumns + " FROM projects p" + where + listOrder + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, size, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProjectView, 0, size)
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachTypeNames(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// attachTypeNames fills PropertyTypes for a page of views with one query.
func (r *Repo) attachTypeNames(ctx context.Context, views []domain.ProjectView) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]any, len(views))
	idx := make(map[int64]int, len(views))
	for i, v := range views {
		ids[i] = v.ID
		idx[v.ID] = i
	}
	rows, err := r.db.QueryContext(ctx, propertyTypeNamesPrefix+placeholders(len(ids))+" ORDER BY project_id, position", ids...)
	if err != nil {
		return fmt.Errorf("load property types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var typ string
		if err := rows.Scan(&id, &typ); err != nil {
			return err
		}
		i, ok := idx[id]
		if !ok {
			continue
		}
		views[i].PropertyTypes = appendUnique(views[i].PropertyTypes, typ)
	}
	return rows.Err()
}

// GetProject reads one project with its payment plans and unit breakdown.
func (r *Repo) GetProject(ctx context.Context, id int64) (domain.ProjectView, error) {
	var media, amenities []byte
	v, err := scanView(r.db.QueryRowContext(ctx, getProjectSQL, id), &media, &amenities)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProjectView{}, domain.ErrNotFound
		}
		return domain.ProjectView{}, err
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &v.Media); err != nil {
			log.Warn().Err(err).Int64("id", id).Msg("bad media json")
		}
	}
	if len(amenities) > 0 {
		if err := json.Unmarshal(amenities, &v.Amenities); err != nil {
			log.Warn().Err(err).Int64("id", id).Msg("bad amenities json")
		}
	}

	plans, err := r.db.QueryContext(ctx, listPaymentPlansSQL, id)
	if err != nil {
		return domain.ProjectView{}, fmt.Errorf("load payment plans: %w", err)
	}
	defer plans.Close()
	for plans.Next() {
		var name sql.NullString
		var raw []byte
		if err := plans.Scan(&name, &raw); err != nil {
			return domain.ProjectView{}, err
		}
		pv := domain.PaymentPlanView{Name: strPtr(name)}
		if len(raw) > 0 {
			pv.Raw = append(json.RawMessage(nil), raw...)
		}
		v.PaymentPlans = append(v.PaymentPlans, pv)
	}
	if err := plans.Err(); err != nil {
		return domain.ProjectView{}, err
	}

	units, err := r.db.QueryContext(ctx, listPropertyTypesSQL, id)
	if err != nil {
		return domain.ProjectView{}, fmt.Errorf("load unit types: %w", err)
	}
	defer units.Close()
	for units.Next() {
		var u domain.PropertyTypeView
		var price, area sql.NullFloat64
		var beds sql.NullInt64
		if err := units.Scan(&u.Type, &price, &area, &beds); err != nil {
			return domain.ProjectView{}, err
		}
		u.StartingPrice, u.StartingArea, u.Bedrooms = f64Ptr(price), f64Ptr(area), intPtr(beds)
		v.UnitTypes = append(v.UnitTypes, u)
		v.PropertyTypes = appendUnique(v.PropertyTypes, u.Type)
	}
	return v, units.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanView reads listColumns (plus any extra trailing columns) into a view.
func scanView(s scanner, extra ...any) (domain.ProjectView, error) {
	var v domain.ProjectView
	var (
		desc, loc, district, city, gh, dev sql.NullString
		status, sale, construction, cover  sql.NullString
		lat, lon, minP, maxP, minA, maxA   sql.NullFloat64
		minB, maxB                         sql.NullInt64
		completion, handover               sql.NullTime
	)
	dest := []any{
		&v.ID, &v.Title, &desc, &loc, &district, &city, &lat, &lon, &gh,
		&dev, &status, &sale, &construction, &minP, &maxP, &v.Currency,
		&minB, &maxB, &minA, &maxA, &v.AreaUnit,
		&completion, &handover, &cover, &v.IsFeatured, &v.SyncedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return domain.ProjectView{}, err
	}

	v.Description, v.Location, v.District, v.City = strPtr(desc), strPtr(loc), strPtr(district), strPtr(city)
	v.Lat, v.Lon, v.Geohash = f64Ptr(lat), f64Ptr(lon), strPtr(gh)
	v.Developer, v.Status, v.SaleStatus, v.Construction = strPtr(dev), strPtr(status), strPtr(sale), strPtr(construction)
	v.MinPrice, v.MaxPrice = f64Ptr(minP), f64Ptr(maxP)
	v.MinArea, v.MaxArea = f64Ptr(minA), f64Ptr(maxA)
	v.CompletionDate, v.HandoverDate = timePtr(completion), timePtr(handover)
	v.CoverImage = strPtr(cover)
	v.PropertyTypes = []string{}

	lo, hi := intPtr(minB), intPtr(maxB)
	var beds []int
	for _, b := range []*int{lo, hi} {
		if b != nil {
			beds = append(beds, *b)
		}
	}
	v.Bedrooms = normalizer.BedroomLabel(beds)
	v.BedroomsRange = normalizer.BedroomRangeLabel(lo, hi)
	return v, nil
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func f64Ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	i := int(n.Int64)
	return &i
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
