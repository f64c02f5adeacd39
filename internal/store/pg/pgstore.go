// Package pg is the postgres-backed store. Activities live in a row per
// entity; child collections are replaced with the parent in one transaction,
// together with an audit row, so readers never observe a half-written
// activity.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"verisyntra.org/internal/ids"
	"verisyntra.org/internal/store"
)

type Store struct {
	db *sql.DB
}

var _ store.Service = (*Store)(nil)

// Open connects with tuned pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle; tests inject sqlmock through it.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) CreateActivity(ctx context.Context, a store.ProcessingActivity, actor store.Actor) (store.ProcessingActivity, error) {
	if err := a.Validate(); err != nil {
		return store.ProcessingActivity{}, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	a.ID = ids.New()
	if a.Status == "" {
		a.Status = store.StatusActive
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.ProcessingActivity{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into processing_activities(id, tenant_id, name_vi, name_en, purpose_vi, purpose_en, legal_basis, status, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, a.ID, a.TenantID, a.Name.Vi, a.Name.En, a.Purpose.Vi, a.Purpose.En, a.LegalBasis, a.Status, a.CreatedAt, a.UpdatedAt); err != nil {
		return store.ProcessingActivity{}, err
	}
	if err := writeChildren(ctx, tx, &a); err != nil {
		return store.ProcessingActivity{}, err
	}
	if err := writeAudit(ctx, tx, a, actor, "activity.create"); err != nil {
		return store.ProcessingActivity{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.ProcessingActivity{}, err
	}
	return a, nil
}

func (s *Store) GetActivity(ctx context.Context, tenantID, id string) (store.ProcessingActivity, error) {
	a, err := s.scanActivity(ctx, tenantID, id)
	if err != nil {
		return store.ProcessingActivity{}, err
	}
	if err := s.loadChildren(ctx, &a); err != nil {
		return store.ProcessingActivity{}, err
	}
	return a, nil
}

func (s *Store) ListActivities(ctx context.Context, tenantID string, includeInactive bool) ([]store.ProcessingActivity, error) {
	statuses := []any{tenantID, store.StatusActive}
	q := `
		select id, tenant_id, name_vi, name_en, purpose_vi, purpose_en, legal_basis, status, created_at, updated_at
		from processing_activities
		where tenant_id = $1 and status = $2
		order by created_at`
	if includeInactive {
		q = `
		select id, tenant_id, name_vi, name_en, purpose_vi, purpose_en, legal_basis, status, created_at, updated_at
		from processing_activities
		where tenant_id = $1 and status in ($2, $3)
		order by created_at`
		statuses = append(statuses, store.StatusInactive)
	}
	rows, err := s.db.QueryContext(ctx, q, statuses...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ProcessingActivity
	for rows.Next() {
		var a store.ProcessingActivity
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name.Vi, &a.Name.En, &a.Purpose.Vi, &a.Purpose.En, &a.LegalBasis, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadChildren(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) UpdateActivity(ctx context.Context, a store.ProcessingActivity, actor store.Actor) (store.ProcessingActivity, error) {
	if err := a.Validate(); err != nil {
		return store.ProcessingActivity{}, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	cur, err := s.scanActivity(ctx, a.TenantID, a.ID)
	if err != nil {
		return store.ProcessingActivity{}, err
	}
	if a.Status == "" || a.Status == store.StatusDeleted {
		a.Status = cur.Status
	}
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.ProcessingActivity{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		update processing_activities
		set name_vi=$1, name_en=$2, purpose_vi=$3, purpose_en=$4, legal_basis=$5, status=$6, updated_at=$7
		where id=$8 and tenant_id=$9
	`, a.Name.Vi, a.Name.En, a.Purpose.Vi, a.Purpose.En, a.LegalBasis, a.Status, a.UpdatedAt, a.ID, a.TenantID); err != nil {
		return store.ProcessingActivity{}, err
	}
	if err := clearChildren(ctx, tx, a.ID); err != nil {
		return store.ProcessingActivity{}, err
	}
	if err := writeChildren(ctx, tx, &a); err != nil {
		return store.ProcessingActivity{}, err
	}
	if err := writeAudit(ctx, tx, a, actor, "activity.update"); err != nil {
		return store.ProcessingActivity{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.ProcessingActivity{}, err
	}
	return a, nil
}

func (s *Store) DeleteActivity(ctx context.Context, tenantID, id string, actor store.Actor) error {
	a, err := s.scanActivity(ctx, tenantID, id)
	if err != nil {
		return err
	}
	a.Status = store.StatusDeleted

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		update processing_activities set status=$1, updated_at=$2
		where id=$3 and tenant_id=$4 and status <> $1
	`, store.StatusDeleted, time.Now().UTC(), id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: activity %s", store.ErrNotFound, id)
	}
	if err := writeAudit(ctx, tx, a, actor, "activity.delete"); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) scanActivity(ctx context.Context, tenantID, id string) (store.ProcessingActivity, error) {
	var a store.ProcessingActivity
	err := s.db.QueryRowContext(ctx, `
		select id, tenant_id, name_vi, name_en, purpose_vi, purpose_en, legal_basis, status, created_at, updated_at
		from processing_activities
		where id=$1 and tenant_id=$2 and status <> $3
	`, id, tenantID, store.StatusDeleted).Scan(
		&a.ID, &a.TenantID, &a.Name.Vi, &a.Name.En, &a.Purpose.Vi, &a.Purpose.En,
		&a.LegalBasis, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ProcessingActivity{}, fmt.Errorf("%w: activity %s", store.ErrNotFound, id)
	}
	if err != nil {
		return store.ProcessingActivity{}, err
	}
	return a, nil
}

func writeAudit(ctx context.Context, tx *sql.Tx, a store.ProcessingActivity, actor store.Actor, action string) error {
	after, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		insert into audit_log(id, tenant_id, action, entity_type, entity_id, user_id, ip_address, after, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, ids.New(), a.TenantID, action, "processing_activity", a.ID, actor.UserID, actor.IPAddress, after, time.Now().UTC())
	return err
}
