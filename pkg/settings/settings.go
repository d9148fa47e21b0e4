// Package settings fetches and caches Zuora tenant environment settings:
// available charge models, billing periods, currencies, units of
// measure, and billing rules. Callers use them to validate payloads
// against what the tenant actually supports.
//
// Settings are fetched once per process through the batch endpoint and
// held for the lifetime of the Service; a failed fetch is latched so a
// broken tenant is not re-fetched on every call. ForceRefresh clears the
// latch.
package settings

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/catalogtools/zuora-catalog-client/pkg/client"
)

// The settings paths fetched in one batch.
var settingPaths = []string{
	"/charge-models",
	"/billing-periods",
	"/billing-cycle-types",
	"/currencies",
	"/units-of-measure",
	"/billing-rules",
	"/subscription-settings",
}

// Fetcher is the slice of the API client this service needs.
type Fetcher interface {
	GetSettingsBatch(ctx context.Context, urls []string) (*client.Result, error)
}

// UOM is a unit of measure defined in the tenant.
type UOM struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DisplayAs string `json:"displayAs"`
	Active    bool   `json:"active"`
}

// Service fetches and caches tenant settings.
type Service struct {
	fetcher Fetcher
	logger  zerolog.Logger

	mu        sync.Mutex
	cached    map[string]any
	attempted bool
	fetchErr  string
}

// NewService creates a settings service backed by the given client.
func NewService(fetcher Fetcher) *Service {
	return &Service{
		fetcher: fetcher,
		logger:  log.With().Str("component", "zuora-settings").Logger(),
	}
}

// Fetch returns the tenant settings keyed by setting path (without the
// leading slash). The first successful fetch is cached for the life of
// the service; the first failure is latched and returned until
// forceRefresh.
func (s *Service) Fetch(ctx context.Context, forceRefresh bool) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && !forceRefresh {
		return s.cached, nil
	}
	if s.attempted && !forceRefresh {
		return nil, &FetchError{Message: s.fetchErr}
	}
	s.attempted = true
	s.fetchErr = ""

	result, err := s.fetcher.GetSettingsBatch(ctx, settingPaths)
	if err != nil {
		s.fetchErr = err.Error()
		s.logger.Warn().Err(err).Msg("Failed to fetch Zuora settings")
		return nil, &FetchError{Message: s.fetchErr, Err: err}
	}

	parsed := parseBatchResponse(result.Data)
	s.cached = parsed
	s.logger.Info().Int("settings", len(parsed)).Msg("Fetched Zuora settings")

	return parsed, nil
}

// FetchError reports a failed settings fetch. The failure is latched;
// subsequent calls return the same error without hitting the network.
type FetchError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return "fetch zuora settings: " + e.Message
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// parseBatchResponse turns the batch envelope into a map keyed by the
// setting path. Only 200 responses are kept.
func parseBatchResponse(data map[string]any) map[string]any {
	parsed := make(map[string]any)

	responses, _ := data["responses"].([]any)
	for _, raw := range responses {
		response, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		url, _ := response["url"].(string)
		inner, _ := response["response"].(map[string]any)
		if url == "" || inner == nil {
			continue
		}

		status, _ := inner["status"].(string)
		if !strings.Contains(status, "200") {
			continue
		}

		parsed[strings.TrimLeft(url, "/")] = inner["body"]
	}

	return parsed
}

// ChargeModels returns the charge models enabled in the tenant.
func (s *Service) ChargeModels(ctx context.Context) []string {
	return s.namedList(ctx, "charge-models", "chargeModels", "name", "chargeModel")
}

// BillingPeriods returns the billing periods enabled in the tenant.
func (s *Service) BillingPeriods(ctx context.Context) []string {
	return s.namedList(ctx, "billing-periods", "billingPeriods", "name", "billingPeriod")
}

// BillingCycleTypes returns the bill cycle types enabled in the tenant.
func (s *Service) BillingCycleTypes(ctx context.Context) []string {
	return s.namedList(ctx, "billing-cycle-types", "billingCycleTypes", "name", "billCycleType")
}

// Currencies returns the active currency codes enabled in the tenant.
func (s *Service) Currencies(ctx context.Context) []string {
	settings, err := s.Fetch(ctx, false)
	if err != nil {
		return nil
	}

	entries := listUnder(settings["currencies"], "currencies")
	var codes []string
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if active, present := entry["active"].(bool); present && !active {
			continue
		}
		if code, _ := entry["currencyCode"].(string); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// DefaultCurrency returns the tenant's first active currency, falling
// back to USD when settings are unavailable.
func (s *Service) DefaultCurrency(ctx context.Context) string {
	if currencies := s.Currencies(ctx); len(currencies) > 0 {
		return currencies[0]
	}
	return "USD"
}

// UnitsOfMeasure returns the UOMs defined in the tenant.
func (s *Service) UnitsOfMeasure(ctx context.Context) []UOM {
	settings, err := s.Fetch(ctx, false)
	if err != nil {
		return nil
	}

	entries := listUnder(settings["units-of-measure"], "unitsOfMeasure")
	var uoms []UOM
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		uom := UOM{Active: true}
		uom.ID, _ = entry["id"].(string)
		uom.Name, _ = entry["name"].(string)
		uom.DisplayAs, _ = entry["displayAs"].(string)
		if active, present := entry["active"].(bool); present {
			uom.Active = active
		}
		uoms = append(uoms, uom)
	}
	return uoms
}

// UOMNames returns the names of active UOMs, for validation.
func (s *Service) UOMNames(ctx context.Context) []string {
	var names []string
	for _, uom := range s.UnitsOfMeasure(ctx) {
		if uom.Active && uom.Name != "" {
			names = append(names, uom.Name)
		}
	}
	return names
}

// BillingRules returns the billing rules configuration.
func (s *Service) BillingRules(ctx context.Context) map[string]any {
	settings, err := s.Fetch(ctx, false)
	if err != nil {
		return nil
	}
	rules, _ := settings["billing-rules"].(map[string]any)
	return rules
}

// SubscriptionSettings returns the subscription settings configuration.
func (s *Service) SubscriptionSettings(ctx context.Context) map[string]any {
	settings, err := s.Fetch(ctx, false)
	if err != nil {
		return nil
	}
	sub, _ := settings["subscription-settings"].(map[string]any)
	return sub
}

// Loaded reports whether settings have been successfully fetched.
func (s *Service) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached != nil
}

// FetchErr returns the latched fetch error message, if any.
func (s *Service) FetchErr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchErr
}

// namedList extracts a list of names from a setting that may arrive as
// {"<listKey>": [...]} or as a bare list, with entries that are plain
// strings or objects carrying one of the given name keys. Tenants vary.
func (s *Service) namedList(ctx context.Context, settingKey, listKey string, nameKeys ...string) []string {
	settings, err := s.Fetch(ctx, false)
	if err != nil {
		return nil
	}

	var names []string
	for _, raw := range listUnder(settings[settingKey], listKey) {
		switch entry := raw.(type) {
		case string:
			names = append(names, entry)
		case map[string]any:
			for _, nameKey := range nameKeys {
				if name, _ := entry[nameKey].(string); name != "" {
					names = append(names, name)
					break
				}
			}
		}
	}
	return names
}

// listUnder unwraps a setting body into its entry list, whether the
// body is {"key": [...]} or already a list.
func listUnder(body any, key string) []any {
	switch v := body.(type) {
	case map[string]any:
		list, _ := v[key].([]any)
		return list
	case []any:
		return v
	default:
		return nil
	}
}
