package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JosueCoro/mobicorp/internal/alerting"
	"github.com/JosueCoro/mobicorp/internal/storage"
)

type fakeAlertStore struct {
	inserted []storage.PriceAlert
	err      error
	nextID   int64
}

func (f *fakeAlertStore) InsertPriceAlert(ctx context.Context, alert storage.PriceAlert) (storage.PriceAlert, error) {
	if f.err != nil {
		return storage.PriceAlert{}, f.err
	}
	f.nextID++
	alert.ID = f.nextID
	f.inserted = append(f.inserted, alert)
	return alert, nil
}

func (f *fakeAlertStore) ListRecentAlerts(ctx context.Context, limit int) ([]storage.AlertView, error) {
	return nil, nil
}

type fakeNotifier struct {
	notes []alerting.Notification
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	f.notes = append(f.notes, note)
	return f.err
}

func catalogProduct(id int64, price float64) storage.Product {
	p := decimal.NewFromFloat(price)
	return storage.Product{ID: id, Name: "Silla Ejecutiva", Category: "Sillas", Price: &p}
}

func TestEvaluateAboveThreshold(t *testing.T) {
	store := &fakeAlertStore{}
	notifier := &fakeNotifier{}
	eval := NewAlertEvaluator(store, notifier, 10.0, zerolog.Nop())

	alert, err := eval.Evaluate(context.Background(), catalogProduct(7, 100), decimal.NewFromInt(115))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if alert == nil {
		t.Fatal("15% deviation must alert at a 10% threshold")
	}

	if !alert.VariationPercent.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected variation 15, got %s", alert.VariationPercent)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one persisted alert, got %d", len(store.inserted))
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.notes))
	}
	if notifier.notes[0].Direction != "up" {
		t.Fatalf("market above catalog should classify as up, got %q", notifier.notes[0].Direction)
	}
}

func TestEvaluateWithinThreshold(t *testing.T) {
	store := &fakeAlertStore{}
	eval := NewAlertEvaluator(store, nil, 10.0, zerolog.Nop())

	alert, err := eval.Evaluate(context.Background(), catalogProduct(7, 100), decimal.NewFromInt(105))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if alert != nil {
		t.Fatalf("5%% deviation must not alert: %+v", alert)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("nothing should be persisted, got %d", len(store.inserted))
	}
}

func TestEvaluateExactlyAtThreshold(t *testing.T) {
	eval := NewAlertEvaluator(&fakeAlertStore{}, nil, 10.0, zerolog.Nop())

	// 阈值本身不触发，必须严格超过
	alert, err := eval.Evaluate(context.Background(), catalogProduct(1, 100), decimal.NewFromInt(110))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if alert != nil {
		t.Fatal("deviation equal to the threshold must not alert")
	}
}

func TestEvaluateDownwardDeviation(t *testing.T) {
	store := &fakeAlertStore{}
	notifier := &fakeNotifier{}
	eval := NewAlertEvaluator(store, notifier, 10.0, zerolog.Nop())

	alert, err := eval.Evaluate(context.Background(), catalogProduct(3, 200), decimal.NewFromInt(150))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if alert == nil {
		t.Fatal("25% downward deviation must alert")
	}
	if !alert.VariationPercent.Equal(decimal.NewFromInt(-25)) {
		t.Fatalf("expected variation -25, got %s", alert.VariationPercent)
	}
	if notifier.notes[0].Direction != "down" {
		t.Fatalf("expected direction down, got %q", notifier.notes[0].Direction)
	}
}

func TestEvaluateNoRecordedPrice(t *testing.T) {
	store := &fakeAlertStore{}
	eval := NewAlertEvaluator(store, nil, 10.0, zerolog.Nop())

	alert, err := eval.Evaluate(context.Background(), storage.Product{ID: 9, Name: "Sin precio"}, decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if alert != nil || len(store.inserted) != 0 {
		t.Fatal("a product without a recorded price never alerts")
	}

	zero := decimal.Zero
	alert, err = eval.Evaluate(context.Background(), storage.Product{ID: 10, Name: "Precio cero", Price: &zero}, decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if alert != nil {
		t.Fatal("a zero catalog price never alerts")
	}
}

func TestEvaluatePersistFailure(t *testing.T) {
	storeErr := errors.New("db down")
	notifier := &fakeNotifier{}
	eval := NewAlertEvaluator(&fakeAlertStore{err: storeErr}, notifier, 10.0, zerolog.Nop())

	_, err := eval.Evaluate(context.Background(), catalogProduct(4, 100), decimal.NewFromInt(130))
	if !errors.Is(err, storeErr) {
		t.Fatalf("persist failure must surface, got %v", err)
	}
	if len(notifier.notes) != 0 {
		t.Fatalf("no notification should go out when persistence failed, got %d", len(notifier.notes))
	}
}

func TestEvaluateNotifierFailureIsSwallowed(t *testing.T) {
	store := &fakeAlertStore{}
	notifier := &fakeNotifier{err: errors.New("telegram timeout")}
	eval := NewAlertEvaluator(store, notifier, 10.0, zerolog.Nop())

	alert, err := eval.Evaluate(context.Background(), catalogProduct(5, 100), decimal.NewFromInt(140))
	if err != nil {
		t.Fatalf("notifier failure must not escalate: %v", err)
	}
	if alert == nil || len(store.inserted) != 1 {
		t.Fatal("alert must still be persisted when delivery fails")
	}
}

func TestVariation(t *testing.T) {
	cases := []struct {
		oldPrice, newPrice, want string
	}{
		{"100", "115", "15"},
		{"100", "85", "-15"},
		{"200", "200", "0"},
		{"80", "100", "25"},
	}
	for _, tc := range cases {
		got := Variation(decimal.RequireFromString(tc.oldPrice), decimal.RequireFromString(tc.newPrice))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("Variation(%s, %s) = %s, want %s", tc.oldPrice, tc.newPrice, got, tc.want)
		}
	}
}
