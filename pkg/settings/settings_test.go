package settings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/catalogtools/zuora-catalog-client/pkg/client"
)

// fakeFetcher returns a canned batch result and counts calls.
type fakeFetcher struct {
	result *client.Result
	err    error
	calls  int
}

func (f *fakeFetcher) GetSettingsBatch(ctx context.Context, urls []string) (*client.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func batchResult(t *testing.T, body string) *client.Result {
	t.Helper()
	var data map[string]any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		t.Fatalf("invalid fixture: %v", err)
	}
	return &client.Result{StatusCode: 200, Data: data, Raw: []byte(body)}
}

const settingsFixture = `{
	"responses": [
		{
			"id": "req-0",
			"url": "/charge-models",
			"response": {
				"status": "200 OK",
				"body": {"chargeModels": [
					{"name": "Flat Fee Pricing"},
					{"name": "Per Unit Pricing"},
					{"name": "Tiered Pricing"}
				]}
			}
		},
		{
			"id": "req-1",
			"url": "/billing-periods",
			"response": {
				"status": "200 OK",
				"body": {"billingPeriods": ["Month", "Annual", "Quarter"]}
			}
		},
		{
			"id": "req-2",
			"url": "/currencies",
			"response": {
				"status": "200 OK",
				"body": {"currencies": [
					{"currencyCode": "EUR", "active": true},
					{"currencyCode": "USD", "active": true},
					{"currencyCode": "GBP", "active": false}
				]}
			}
		},
		{
			"id": "req-3",
			"url": "/units-of-measure",
			"response": {
				"status": "200 OK",
				"body": {"unitsOfMeasure": [
					{"id": "uom-1", "name": "Each", "displayAs": "Each", "active": true},
					{"id": "uom-2", "name": "License", "displayAs": "Licenses"},
					{"id": "uom-3", "name": "GB", "active": false}
				]}
			}
		},
		{
			"id": "req-4",
			"url": "/billing-rules",
			"response": {
				"status": "200 OK",
				"body": {"proration": true}
			}
		},
		{
			"id": "req-5",
			"url": "/billing-cycle-types",
			"response": {
				"status": "500 Internal Server Error",
				"body": {"message": "boom"}
			}
		}
	]
}`

func TestFetch_CachesAfterFirstCall(t *testing.T) {
	fetcher := &fakeFetcher{result: batchResult(t, settingsFixture)}
	service := NewService(fetcher)

	first, err := service.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	second, err := service.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch() second error = %v", err)
	}

	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
	}
	if len(first) != len(second) {
		t.Errorf("cached fetch differs: %d vs %d settings", len(first), len(second))
	}
	if !service.Loaded() {
		t.Error("Loaded() = false after successful fetch")
	}
}

func TestFetch_DropsNon200Responses(t *testing.T) {
	service := NewService(&fakeFetcher{result: batchResult(t, settingsFixture)})

	settings, err := service.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if _, exists := settings["billing-cycle-types"]; exists {
		t.Error("500 response kept in parsed settings")
	}
	if _, exists := settings["charge-models"]; !exists {
		t.Error("200 response missing from parsed settings")
	}
}

func TestFetch_LatchesFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	service := NewService(fetcher)

	if _, err := service.Fetch(context.Background(), false); err == nil {
		t.Fatal("Fetch() error = nil, want failure")
	}
	if _, err := service.Fetch(context.Background(), false); err == nil {
		t.Fatal("Fetch() after failure = nil, want latched error")
	}

	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1 (failure latched)", fetcher.calls)
	}

	var fetchErr *FetchError
	_, err := service.Fetch(context.Background(), false)
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Fetch() error = %T, want *FetchError", err)
	}
}

func TestFetch_ForceRefreshClearsLatch(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	service := NewService(fetcher)

	service.Fetch(context.Background(), false)

	fetcher.err = nil
	fetcher.result = batchResult(t, settingsFixture)

	settings, err := service.Fetch(context.Background(), true)
	if err != nil {
		t.Fatalf("Fetch(forceRefresh) error = %v", err)
	}
	if len(settings) == 0 {
		t.Error("Fetch(forceRefresh) returned no settings")
	}
	if fetcher.calls != 2 {
		t.Errorf("fetcher calls = %d, want 2", fetcher.calls)
	}
}

func TestChargeModels(t *testing.T) {
	service := NewService(&fakeFetcher{result: batchResult(t, settingsFixture)})

	got := service.ChargeModels(context.Background())
	want := []string{"Flat Fee Pricing", "Per Unit Pricing", "Tiered Pricing"}
	if len(got) != len(want) {
		t.Fatalf("ChargeModels() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ChargeModels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBillingPeriods_StringEntries(t *testing.T) {
	service := NewService(&fakeFetcher{result: batchResult(t, settingsFixture)})

	got := service.BillingPeriods(context.Background())
	if len(got) != 3 || got[0] != "Month" {
		t.Errorf("BillingPeriods() = %v, want [Month Annual Quarter]", got)
	}
}

func TestCurrencies_ActiveOnly(t *testing.T) {
	service := NewService(&fakeFetcher{result: batchResult(t, settingsFixture)})

	got := service.Currencies(context.Background())
	if len(got) != 2 {
		t.Fatalf("Currencies() = %v, want 2 active currencies", got)
	}
	for _, code := range got {
		if code == "GBP" {
			t.Error("Currencies() includes inactive GBP")
		}
	}

	if def := service.DefaultCurrency(context.Background()); def != "EUR" {
		t.Errorf("DefaultCurrency() = %q, want EUR (first active)", def)
	}
}

func TestDefaultCurrency_FallbackOnFailure(t *testing.T) {
	service := NewService(&fakeFetcher{err: errors.New("connection refused")})

	if def := service.DefaultCurrency(context.Background()); def != "USD" {
		t.Errorf("DefaultCurrency() = %q, want USD fallback", def)
	}
}

func TestUnitsOfMeasure(t *testing.T) {
	service := NewService(&fakeFetcher{result: batchResult(t, settingsFixture)})

	uoms := service.UnitsOfMeasure(context.Background())
	if len(uoms) != 3 {
		t.Fatalf("UnitsOfMeasure() returned %d entries, want 3", len(uoms))
	}
	// Missing "active" field defaults to active.
	if !uoms[1].Active {
		t.Error("UOM without active field should default to active")
	}

	names := service.UOMNames(context.Background())
	if len(names) != 2 {
		t.Errorf("UOMNames() = %v, want 2 active names", names)
	}
	for _, name := range names {
		if name == "GB" {
			t.Error("UOMNames() includes inactive GB")
		}
	}
}

func TestBillingRules(t *testing.T) {
	service := NewService(&fakeFetcher{result: batchResult(t, settingsFixture)})

	rules := service.BillingRules(context.Background())
	if proration, _ := rules["proration"].(bool); !proration {
		t.Errorf("BillingRules() = %v, want proration=true", rules)
	}
}
