package domain_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/shopspring/decimal"
)

func pizza(qty int, price string) domain.Item {
	return domain.Item{Name: "Pizza", Quantity: qty, Price: decimal.RequireFromString(price)}
}

func TestNewOrder(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))

	order, err := domain.NewOrder("  Ana  ", []domain.Item{pizza(2, "12.50"), {Name: " Cola ", Quantity: 1, Price: decimal.RequireFromString("3")}}, now)
	if err != nil {
		t.Fatalf("NewOrder() error = %v", err)
	}

	if !strings.HasPrefix(order.ID, "ORD-") {
		t.Errorf("ID = %q, want ORD- prefix", order.ID)
	}
	if order.CustomerName != "Ana" {
		t.Errorf("CustomerName = %q, want trimmed", order.CustomerName)
	}
	if order.Items[1].Name != "Cola" {
		t.Errorf("item name = %q, want trimmed", order.Items[1].Name)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("28")) {
		t.Errorf("TotalAmount = %s, want 28", order.TotalAmount)
	}
	if order.Status != domain.StatusCreated {
		t.Errorf("Status = %q, want created", order.Status)
	}
	if order.CreatedAt.Location() != time.UTC || !order.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v in UTC", order.CreatedAt, now)
	}

	other, err := domain.NewOrder("Ana", []domain.Item{pizza(1, "1")}, now)
	if err != nil {
		t.Fatalf("NewOrder() error = %v", err)
	}
	if other.ID == order.ID {
		t.Error("order ids must be unique")
	}
}

func TestOrderValidate(t *testing.T) {
	valid := domain.Order{
		ID:           "ORD-1",
		CustomerName: "Ana",
		Items:        []domain.Item{pizza(1, "10")},
		Status:       domain.StatusCreated,
	}

	tests := []struct {
		name    string
		mutate  func(*domain.Order)
		wantErr error
	}{
		{"valid order", func(*domain.Order) {}, nil},
		{"missing customer name", func(o *domain.Order) { o.CustomerName = "" }, domain.ErrInvalidOrder},
		{"whitespace only customer name", func(o *domain.Order) { o.CustomerName = "   " }, domain.ErrInvalidOrder},
		{"no items", func(o *domain.Order) { o.Items = nil }, domain.ErrInvalidOrder},
		{"blank item name", func(o *domain.Order) { o.Items = []domain.Item{{Name: " ", Quantity: 1}} }, domain.ErrInvalidOrder},
		{"zero quantity", func(o *domain.Order) { o.Items = []domain.Item{pizza(0, "1")} }, domain.ErrInvalidOrder},
		{"negative price", func(o *domain.Order) { o.Items = []domain.Item{pizza(1, "-0.01")} }, domain.ErrInvalidOrder},
		{"free item", func(o *domain.Order) { o.Items = []domain.Item{pizza(1, "0")} }, nil},
		{"unknown status", func(o *domain.Order) { o.Status = "pending" }, domain.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := valid
			tt.mutate(&order)

			err := order.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Order.Validate() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Order.Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"created", "in_progress", "ready", "delivered", "cancelled"} {
		if _, err := domain.ParseStatus(s); err != nil {
			t.Errorf("ParseStatus(%q) error = %v", s, err)
		}
	}
	if _, err := domain.ParseStatus("shipped"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Errorf("ParseStatus(shipped) error = %v, want ErrInvalidStatus", err)
	}
}

func TestOrderIsTerminal(t *testing.T) {
	tests := []struct {
		status domain.OrderStatus
		want   bool
	}{
		{domain.StatusDelivered, true},
		{domain.StatusCancelled, true},
		{domain.StatusCreated, false},
		{domain.StatusInProgress, false},
		{domain.StatusReady, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := (domain.Order{Status: tt.status}).IsTerminal(); got != tt.want {
				t.Errorf("Order.IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderJSONUsesNumbersForMoney(t *testing.T) {
	order := domain.Order{ID: "ORD-1", Items: []domain.Item{pizza(2, "12.5")}, TotalAmount: decimal.RequireFromString("25")}

	raw, err := json.Marshal(order)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, want := range []string{`"orderId":"ORD-1"`, `"price":12.5`, `"totalAmount":25`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("json %s does not contain %s", raw, want)
		}
	}
}
