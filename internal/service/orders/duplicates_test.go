package orders

import (
	"reflect"
	"testing"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

func sub(number int, email string, products ...domain.ProductSubmission) domain.OrderSubmission {
	items := make([]domain.ItemSubmission, 0, len(products))
	for _, p := range products {
		items = append(items, domain.ItemSubmission{Product: p, Quantity: 1})
	}
	return domain.OrderSubmission{
		Number:   number,
		Customer: domain.CustomerSubmission{Email: email},
		Items:    items,
	}
}

func TestDuplicateOrderNumbers(t *testing.T) {
	cases := []struct {
		name  string
		batch []domain.OrderSubmission
		want  []int
	}{
		{name: "empty", batch: nil, want: []int{}},
		{name: "unique", batch: []domain.OrderSubmission{sub(1, "a"), sub(2, "b")}, want: []int{}},
		{name: "two fives", batch: []domain.OrderSubmission{sub(5, "a"), sub(5, "b")}, want: []int{5}},
		{
			name:  "first occurrence order",
			batch: []domain.OrderSubmission{sub(7, "a"), sub(3, "b"), sub(3, "c"), sub(7, "d"), sub(7, "e")},
			want:  []int{7, 3},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DuplicateOrderNumbers(tc.batch)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDuplicateEmails_ExactMatch(t *testing.T) {
	batch := []domain.OrderSubmission{
		sub(1, "b@x.com"),
		sub(2, "a@x.com"),
		sub(3, "A@x.com"),
		sub(4, "a@x.com"),
		sub(5, "b@x.com"),
	}

	got := DuplicateEmails(batch)
	if !reflect.DeepEqual(got, []string{"b@x.com", "a@x.com"}) {
		t.Fatalf("unexpected duplicates: %v", got)
	}
}

func TestDuplicateProductCodes_AcrossOrders(t *testing.T) {
	p1 := domain.ProductSubmission{Code: "P1", Name: "Pen"}
	p2 := domain.ProductSubmission{Code: "P2", Name: "Pad"}
	p3 := domain.ProductSubmission{Code: "P3", Name: "Ink"}
	batch := []domain.OrderSubmission{
		sub(1, "a", p2, p1),
		sub(2, "b", p3),
		sub(3, "c", p1, p2),
	}

	got := DuplicateProductCodes(batch)
	if !reflect.DeepEqual(got, []string{"P2", "P1"}) {
		t.Fatalf("unexpected duplicates: %v", got)
	}
}

func TestConflictingProductCodes(t *testing.T) {
	batch := []domain.OrderSubmission{
		sub(1, "a", domain.ProductSubmission{Code: "P1", Name: "Pen"}),
		sub(2, "b", domain.ProductSubmission{Code: "P1", Name: "Pen"}),
		sub(3, "c", domain.ProductSubmission{Code: "P2", Name: "Pad"}, domain.ProductSubmission{Code: "P1", Name: "Pencil"}),
		sub(4, "d", domain.ProductSubmission{Code: "P2", Name: "Notepad"}, domain.ProductSubmission{Code: "P1", Name: "Marker"}),
	}

	got := ConflictingProductCodes(batch)
	if !reflect.DeepEqual(got, []string{"P1", "P2"}) {
		t.Fatalf("unexpected conflicts: %v", got)
	}
}

func TestAtSubmissionKeepsCode(t *testing.T) {
	err := atSubmission(domain.ErrFutureDate.Withf("order 9 date is in the future"), 2, 9)

	derr, ok := domain.AsError(err)
	if !ok {
		t.Fatalf("expected *domain.Error, got %T", err)
	}
	if derr.Code != domain.ErrFutureDate.Code {
		t.Fatalf("unexpected code: %s", derr.Code)
	}
	if derr.Message != "submission 2 (order 9): order 9 date is in the future" {
		t.Fatalf("unexpected message: %s", derr.Message)
	}
}
