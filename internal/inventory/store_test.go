package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatepass/gatepass-backend/pkg/db/models"
	pkgerrors "github.com/gatepass/gatepass-backend/pkg/errors"
)

func TestReserveThenCommitAndReleaseLifecycle(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	s := NewStore()

	tt := seedTicketType(t, db, 5)
	expiry := time.Now().Add(15 * time.Minute)

	orderA := uuid.New()
	if err := db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(ctx, tx, orderA, []ReservationRequest{{TicketTypeID: tt.ID, Qty: 3}}, expiry)
	}); err != nil {
		t.Fatalf("reserve order a: %v", err)
	}
	assertCounters(t, db, tt.ID, 0, 3)

	// A second order asking for more than the remainder must fail and leave
	// the counters untouched.
	orderB := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(ctx, tx, orderB, []ReservationRequest{{TicketTypeID: tt.ID, Qty: 3}}, expiry)
	})
	if err == nil {
		t.Fatal("expected insufficient stock")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	assertCounters(t, db, tt.ID, 0, 3)

	if err := db.Transaction(func(tx *gorm.DB) error {
		return s.Commit(ctx, tx, orderA)
	}); err != nil {
		t.Fatalf("commit order a: %v", err)
	}
	assertCounters(t, db, tt.ID, 3, 0)

	orderC := uuid.New()
	if err := db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(ctx, tx, orderC, []ReservationRequest{{TicketTypeID: tt.ID, Qty: 2}}, expiry)
	}); err != nil {
		t.Fatalf("reserve order c: %v", err)
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return s.Commit(ctx, tx, orderC)
	}); err != nil {
		t.Fatalf("commit order c: %v", err)
	}
	assertCounters(t, db, tt.ID, 5, 0)

	orderD := uuid.New()
	err = db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(ctx, tx, orderD, []ReservationRequest{{TicketTypeID: tt.ID, Qty: 1}}, expiry)
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock for sold out type, got %v", err)
	}
}

func TestReserveConcurrentBuyersSingleUnit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// One connection keeps sqlite from rejecting concurrent writers; the
	// conditional update still decides which buyer wins.
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	s := NewStore()
	tt := seedTicketType(t, db, 1)

	const buyers = 8
	errs := make([]error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.Transaction(func(tx *gorm.DB) error {
				return s.Reserve(ctx, tx, uuid.New(), []ReservationRequest{{TicketTypeID: tt.ID, Qty: 1}}, time.Now().Add(time.Minute))
			})
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one winning hold, got %d", won)
	}
	assertCounters(t, db, tt.ID, 0, 1)
}

func TestReserveAllOrNothing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	s := NewStore()

	ttA := seedTicketType(t, db, 5)
	ttB := seedTicketType(t, db, 1)

	orderID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(ctx, tx, orderID, []ReservationRequest{
			{TicketTypeID: ttA.ID, Qty: 2},
			{TicketTypeID: ttB.ID, Qty: 3},
		}, time.Now().Add(time.Minute))
	})
	if err == nil {
		t.Fatal("expected failure on second line")
	}

	// The first hold must have rolled back with the transaction.
	assertCounters(t, db, ttA.ID, 0, 0)
	assertCounters(t, db, ttB.ID, 0, 0)
	var count int64
	if err := db.Model(&models.Reservation{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		t.Fatalf("count reservations: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no reservation rows, got %d", count)
	}
}

func TestReserveInactiveTicketType(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	s := NewStore()

	tt := seedTicketType(t, db, 5)
	if err := db.Model(&models.TicketType{}).Where("id = ?", tt.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(ctx, tx, uuid.New(), []ReservationRequest{{TicketTypeID: tt.ID, Qty: 1}}, time.Now().Add(time.Minute))
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCommitIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	s := NewStore()

	tt := seedTicketType(t, db, 5)
	orderID := uuid.New()
	if err := db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(ctx, tx, orderID, []ReservationRequest{{TicketTypeID: tt.ID, Qty: 2}}, time.Now().Add(time.Minute))
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := db.Transaction(func(tx *gorm.DB) error {
			return s.Commit(ctx, tx, orderID)
		}); err != nil {
			t.Fatalf("commit attempt %d: %v", i+1, err)
		}
	}
	assertCounters(t, db, tt.ID, 2, 0)
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	s := NewStore()

	tt := seedTicketType(t, db, 5)
	orderID := uuid.New()
	if err := db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(ctx, tx, orderID, []ReservationRequest{{TicketTypeID: tt.ID, Qty: 2}}, time.Now().Add(time.Minute))
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := db.Transaction(func(tx *gorm.DB) error {
			return s.Release(ctx, tx, orderID)
		}); err != nil {
			t.Fatalf("release attempt %d: %v", i+1, err)
		}
	}
	assertCounters(t, db, tt.ID, 0, 0)
}

func TestRestoreSold(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	s := NewStore()

	tt := seedTicketType(t, db, 5)
	orderID := uuid.New()
	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := s.Reserve(ctx, tx, orderID, []ReservationRequest{{TicketTypeID: tt.ID, Qty: 3}}, time.Now().Add(time.Minute)); err != nil {
			return err
		}
		return s.Commit(ctx, tx, orderID)
	}); err != nil {
		t.Fatalf("sell: %v", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return s.RestoreSold(ctx, tx, tt.ID, 3)
	}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	assertCounters(t, db, tt.ID, 0, 0)

	// Restoring more than was sold must be rejected.
	err := db.Transaction(func(tx *gorm.DB) error {
		return s.RestoreSold(ctx, tx, tt.ID, 1)
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	s := NewStore()
	tt := seedTicketType(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(ctx, tx, uuid.New(), []ReservationRequest{{TicketTypeID: tt.ID, Qty: 0}}, time.Now().Add(time.Minute))
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func seedTicketType(t *testing.T, db *gorm.DB, quantity int) models.TicketType {
	t.Helper()
	tt := models.TicketType{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		Name:       "general admission",
		PriceCents: 2500,
		Quantity:   quantity,
		IsActive:   true,
	}
	if err := db.Create(&tt).Error; err != nil {
		t.Fatalf("seed ticket type: %v", err)
	}
	return tt
}

func assertCounters(t *testing.T, db *gorm.DB, ticketTypeID uuid.UUID, sold, reserved int) {
	t.Helper()
	var tt models.TicketType
	if err := db.First(&tt, "id = ?", ticketTypeID).Error; err != nil {
		t.Fatalf("load ticket type: %v", err)
	}
	if tt.SoldQty != sold || tt.ReservedQty != reserved {
		t.Fatalf("expected sold=%d reserved=%d, got sold=%d reserved=%d", sold, reserved, tt.SoldQty, tt.ReservedQty)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	ticketTypes := `
CREATE TABLE IF NOT EXISTS ticket_types (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  sold_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	reservations := `
CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  ticket_type_id TEXT NOT NULL,
  qty INTEGER NOT NULL,
  expires_at DATETIME NOT NULL,
  created_at DATETIME
);`
	if err := db.Exec(ticketTypes).Error; err != nil {
		t.Fatalf("create ticket_types: %v", err)
	}
	if err := db.Exec(reservations).Error; err != nil {
		t.Fatalf("create reservations: %v", err)
	}
	return db
}
