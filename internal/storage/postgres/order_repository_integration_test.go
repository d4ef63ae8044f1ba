package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/smmstore/internal/domain"
)

func TestOrderRepository_PostgresCreateListAndUpdate(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	users := NewUserRepository(store)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	if _, err := users.CreateIfAbsent(ctx, domain.NewUser(1, "alice", nil)); err != nil {
		t.Fatalf("create user: %v", err)
	}

	now := time.Now().UTC().Round(time.Microsecond)
	order1 := sampleOrder("order-1", 1, 100, now.Add(-2*time.Minute))
	order2 := sampleOrder("order-2", 1, 200, now.Add(-time.Minute))

	if err := repo.Create(ctx, order1); err != nil {
		t.Fatalf("create order1: %v", err)
	}
	if err := repo.Create(ctx, order2); err != nil {
		t.Fatalf("create order2: %v", err)
	}

	user, err := users.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Orders != 2 {
		t.Fatalf("expected orders counter 2, got %d", user.Orders)
	}

	listed, err := repo.ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != order2.ID {
		t.Fatalf("unexpected list result: %+v", listed)
	}
	if !listed[1].Amount.Equal(order1.Amount) {
		t.Fatalf("amount mismatch: got=%s want=%s", listed[1].Amount, order1.Amount)
	}

	res, err := repo.UpdateStatus(ctx, 100, "completed")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if !res.Applied {
		t.Fatal("expected status update to apply")
	}

	got, err := repo.GetByAPIID(ctx, 100)
	if err != nil {
		t.Fatalf("get by api id: %v", err)
	}
	if got.Status != "completed" {
		t.Fatalf("unexpected status: %s", got.Status)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 orders, got %d", count)
	}
}

func TestOrderRepository_PostgresMissingAndDuplicate(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	if _, err := repo.GetByAPIID(ctx, 404); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	res, err := repo.UpdateStatus(ctx, 404, "canceled")
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if res.Applied {
		t.Fatal("update of missing order must be a no-op")
	}

	order := sampleOrder("order-dup", 5, 1, time.Now().UTC().Round(time.Microsecond))
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := repo.Create(ctx, order); !errors.Is(err, errDuplicateOrder) {
		t.Fatalf("expected errDuplicateOrder, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation for code 23505")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatal("unexpected unique violation for non-unique code")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatal("plain error must not be unique violation")
	}
}

func sampleOrder(id string, userID, apiOrderID int64, createdAt time.Time) domain.Order {
	return domain.NewOrder{
		UserID:     userID,
		ServiceID:  7,
		Link:       "https://t.me/example",
		Quantity:   250,
		Amount:     decimal.RequireFromString("3.75"),
		APIOrderID: apiOrderID,
	}.Build(id, createdAt)
}
