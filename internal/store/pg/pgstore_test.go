package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"verisyntra.org/internal/i18n"
	"verisyntra.org/internal/store"
)

func TestCreateActivityWritesAuditInSameTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("insert into processing_activities").
		WithArgs(sqlmock.AnyArg(), "t1", "Quản lý đơn hàng", "", "Giao hàng", "", "contract",
			string(store.StatusActive), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into data_retentions").
		WithArgs(sqlmock.AnyArg(), "5 năm", "", 0, "", "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into audit_log").
		WithArgs(sqlmock.AnyArg(), "t1", "activity.create", "processing_activity",
			sqlmock.AnyArg(), "u1", "10.0.0.1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	s := NewWithDB(db)
	created, err := s.CreateActivity(context.Background(), store.ProcessingActivity{
		TenantID:   "t1",
		Name:       i18n.T("Quản lý đơn hàng", ""),
		Purpose:    i18n.T("Giao hàng", ""),
		LegalBasis: "contract",
		Retention:  &store.DataRetention{Period: i18n.T("5 năm", "")},
	}, store.Actor{UserID: "u1", IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	if created.ID == "" || created.Status != store.StatusActive {
		t.Fatalf("created = %+v", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateActivityRollsBackOnChildFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("insert into processing_activities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into data_retentions").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	s := NewWithDB(db)
	_, err = s.CreateActivity(context.Background(), store.ProcessingActivity{
		TenantID:   "t1",
		Name:       i18n.T("Hoạt động", ""),
		LegalBasis: "consent",
		Retention:  &store.DataRetention{Period: i18n.T("1 năm", "")},
	}, store.Actor{})
	if err == nil {
		t.Fatal("expected error when a child insert fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetActivityNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, tenant_id, name_vi").
		WithArgs("act-1", "t1", string(store.StatusDeleted)).
		WillReturnError(sql.ErrNoRows)

	s := NewWithDB(db)
	if _, err := s.GetActivity(context.Background(), "t1", "act-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want store.ErrNotFound", err)
	}
}

func TestDeleteActivityScopedToTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, tenant_id, name_vi").
		WithArgs("act-1", "t1", string(store.StatusDeleted)).
		WillReturnError(sql.ErrNoRows)

	s := NewWithDB(db)
	if err := s.DeleteActivity(context.Background(), "t1", "act-1", store.Actor{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want store.ErrNotFound for missing row", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
