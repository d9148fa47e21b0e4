package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Known catalog response shapes. Fields the backend adds beyond these
// stay reachable through Result.Data / Result.Raw, so callers get typed
// access to the common fields with a generic fallback instead of untyped
// maps threaded everywhere.

// Product is a product catalog entry.
type Product struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	SKU                string     `json:"sku"`
	Description        string     `json:"description"`
	EffectiveStartDate string     `json:"effectiveStartDate"`
	EffectiveEndDate   string     `json:"effectiveEndDate"`
	ProductRatePlans   []RatePlan `json:"productRatePlans"`
}

// RatePlan is a product rate plan.
type RatePlan struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	Status                 string   `json:"status"`
	EffectiveStartDate     string   `json:"effectiveStartDate"`
	EffectiveEndDate       string   `json:"effectiveEndDate"`
	ProductRatePlanCharges []Charge `json:"productRatePlanCharges"`
}

// Charge is a rate plan charge.
type Charge struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Model         string `json:"model"`
	Description   string `json:"description"`
	BillingPeriod string `json:"billingPeriod"`
	TriggerEvent  string `json:"triggerEvent"`
	UOM           string `json:"uom"`
}

// ProductList is a page of products.
type ProductList struct {
	Products []Product `json:"products"`
	NextPage string    `json:"nextPage"`
}

// decodeResult unmarshals a Result's raw body into a typed shape.
func decodeResult[T any](result *Result) (*T, error) {
	var out T
	if err := json.Unmarshal(result.Raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// ---------------------------------------------------------------------
// Product operations
// ---------------------------------------------------------------------

// QueryProducts queries the product catalog with filter criteria.
func (c *Client) QueryProducts(ctx context.Context, filters map[string]any) (*Result, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	return c.Request(ctx, http.MethodPost, "/v1/catalog/query/products", filters, nil, false)
}

// ListProducts lists products in the catalog, pageSize per page.
func (c *Client) ListProducts(ctx context.Context, pageSize int) (*ProductList, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	result, err := c.Request(ctx, http.MethodGet, "/v1/catalog/products", nil,
		map[string]any{"pageSize": pageSize}, true)
	if err != nil {
		return nil, err
	}
	return decodeResult[ProductList](result)
}

// GetProduct fetches a product by ID or unique key.
func (c *Client) GetProduct(ctx context.Context, productKey string) (*Product, error) {
	result, err := c.Request(ctx, http.MethodGet, "/v1/catalog/products/"+productKey, nil, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeResult[Product](result)
}

// GetProductByName searches for products by name via the query endpoint.
func (c *Client) GetProductByName(ctx context.Context, name string) (*Result, error) {
	return c.QueryProducts(ctx, map[string]any{"name": name})
}

// UpdateProduct updates a product's attributes (name, sku, description,
// effectiveStartDate, effectiveEndDate).
func (c *Client) UpdateProduct(ctx context.Context, productID string, updates map[string]any) (*Result, error) {
	return c.Request(ctx, http.MethodPut, "/v1/catalog/products/"+productID, updates, nil, false)
}

// ---------------------------------------------------------------------
// Rate plan operations
// ---------------------------------------------------------------------

// GetRatePlans returns the rate plans of a product. Rate plans come
// nested in the product response, so this rides the product cache entry.
func (c *Client) GetRatePlans(ctx context.Context, productID string) ([]RatePlan, error) {
	product, err := c.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return product.ProductRatePlans, nil
}

// GetRatePlan fetches a specific rate plan by ID.
func (c *Client) GetRatePlan(ctx context.Context, ratePlanID string) (*RatePlan, error) {
	result, err := c.Request(ctx, http.MethodGet, "/v1/catalog/product-rate-plans/"+ratePlanID, nil, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeResult[RatePlan](result)
}

// UpdateRatePlan updates a rate plan's attributes.
func (c *Client) UpdateRatePlan(ctx context.Context, ratePlanID string, updates map[string]any) (*Result, error) {
	return c.Request(ctx, http.MethodPut, "/v1/catalog/product-rate-plans/"+ratePlanID, updates, nil, false)
}

// ---------------------------------------------------------------------
// Charge operations
// ---------------------------------------------------------------------

// GetCharges returns the charges of a rate plan (nested in the rate plan
// response).
func (c *Client) GetCharges(ctx context.Context, ratePlanID string) ([]Charge, error) {
	ratePlan, err := c.GetRatePlan(ctx, ratePlanID)
	if err != nil {
		return nil, err
	}
	return ratePlan.ProductRatePlanCharges, nil
}

// GetCharge fetches a specific charge by ID.
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	result, err := c.Request(ctx, http.MethodGet, "/v1/catalog/product-rate-plan-charges/"+chargeID, nil, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeResult[Charge](result)
}

// UpdateCharge updates a charge's attributes. Charge model and type
// cannot change once the charge is used in existing subscriptions; the
// backend rejects that with a permanent error.
func (c *Client) UpdateCharge(ctx context.Context, chargeID string, updates map[string]any) (*Result, error) {
	return c.Request(ctx, http.MethodPut, "/v1/catalog/product-rate-plan-charges/"+chargeID, updates, nil, false)
}

// ---------------------------------------------------------------------
// Commerce API operations
// ---------------------------------------------------------------------

// Commerce mutations run against /commerce/... paths while reads are
// cached under /v1/catalog/..., so the executor's path-based
// invalidation never reaches the cached entries they stale. Each
// mutating wrapper invalidates the catalog read prefixes for its
// resource level after success. Products embed rate plans and rate
// plans embed charges, so a lower-level mutation stales the levels
// above it too.
var (
	productReadPrefixes = []string{
		"/v1/catalog/products",
	}
	ratePlanReadPrefixes = []string{
		"/v1/catalog/product-rate-plans",
		"/v1/catalog/products",
	}
	chargeReadPrefixes = []string{
		"/v1/catalog/product-rate-plan-charges",
		"/v1/catalog/product-rate-plans",
		"/v1/catalog/products",
	}
)

// invalidateCatalogReads drops cached GET entries under the given
// catalog endpoint prefixes.
func (c *Client) invalidateCatalogReads(endpointPrefixes []string) {
	removed := 0
	for _, prefix := range endpointPrefixes {
		removed += c.cache.Invalidate(http.MethodGet, prefix)
	}
	if removed > 0 {
		c.logger.Debug().
			Int("removed", removed).
			Msg("Invalidated cached catalog reads after commerce mutation")
	}
}

// CommerceCreateProduct creates a product with nested rate plans and
// charges in one call via the Commerce API.
func (c *Client) CommerceCreateProduct(ctx context.Context, productData map[string]any) (*Result, error) {
	result, err := c.Request(ctx, http.MethodPost, "/commerce/products", productData, nil, false)
	if err != nil {
		return nil, err
	}
	c.invalidateCatalogReads(productReadPrefixes)
	return result, nil
}

// CommerceUpdateProduct updates a product via the Commerce API.
func (c *Client) CommerceUpdateProduct(ctx context.Context, productID string, updates map[string]any) (*Result, error) {
	result, err := c.Request(ctx, http.MethodPut, "/commerce/products/"+productID, updates, nil, false)
	if err != nil {
		return nil, err
	}
	c.invalidateCatalogReads(productReadPrefixes)
	return result, nil
}

// CommerceQueryProducts queries products via the Commerce API.
func (c *Client) CommerceQueryProducts(ctx context.Context, filters map[string]any) (*Result, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	return c.Request(ctx, http.MethodPost, "/commerce/products/query", filters, nil, false)
}

// CommerceCreateRatePlan creates a rate plan under a product.
func (c *Client) CommerceCreateRatePlan(ctx context.Context, productID string, ratePlanData map[string]any) (*Result, error) {
	data := clone(ratePlanData)
	data["productId"] = productID
	result, err := c.Request(ctx, http.MethodPost, "/commerce/product-rate-plans", data, nil, false)
	if err != nil {
		return nil, err
	}
	c.invalidateCatalogReads(ratePlanReadPrefixes)
	return result, nil
}

// CommerceUpdateRatePlan updates a rate plan via the Commerce API.
func (c *Client) CommerceUpdateRatePlan(ctx context.Context, ratePlanID string, updates map[string]any) (*Result, error) {
	result, err := c.Request(ctx, http.MethodPut, "/commerce/product-rate-plans/"+ratePlanID, updates, nil, false)
	if err != nil {
		return nil, err
	}
	c.invalidateCatalogReads(ratePlanReadPrefixes)
	return result, nil
}

// CommerceQueryRatePlans queries rate plans, optionally scoped to one
// product.
func (c *Client) CommerceQueryRatePlans(ctx context.Context, productID string, filters map[string]any) (*Result, error) {
	data := clone(filters)
	if productID != "" {
		data["productId"] = productID
	}
	return c.Request(ctx, http.MethodPost, "/commerce/product-rate-plans/query", data, nil, false)
}

// CommerceCreateCharge creates a charge under a rate plan.
func (c *Client) CommerceCreateCharge(ctx context.Context, ratePlanID string, chargeData map[string]any) (*Result, error) {
	data := clone(chargeData)
	data["productRatePlanId"] = ratePlanID
	result, err := c.Request(ctx, http.MethodPost, "/commerce/product-rate-plan-charges", data, nil, false)
	if err != nil {
		return nil, err
	}
	c.invalidateCatalogReads(chargeReadPrefixes)
	return result, nil
}

// CommerceCreateChargeWithDynamicPricing creates a charge carrying a
// dynamic pricing configuration (fieldLookup formulas, attribute-based
// matrices, fallback price).
func (c *Client) CommerceCreateChargeWithDynamicPricing(ctx context.Context, ratePlanID string, chargeData, dynamicPricing map[string]any) (*Result, error) {
	data := clone(chargeData)
	data["productRatePlanId"] = ratePlanID
	if dynamicPricing != nil {
		data["dynamicPricing"] = dynamicPricing
	}
	result, err := c.Request(ctx, http.MethodPost, "/commerce/product-rate-plan-charges", data, nil, false)
	if err != nil {
		return nil, err
	}
	c.invalidateCatalogReads(chargeReadPrefixes)
	return result, nil
}

// CommerceUpdateCharge updates a charge via the Commerce API.
func (c *Client) CommerceUpdateCharge(ctx context.Context, chargeID string, updates map[string]any) (*Result, error) {
	result, err := c.Request(ctx, http.MethodPut, "/commerce/product-rate-plan-charges/"+chargeID, updates, nil, false)
	if err != nil {
		return nil, err
	}
	c.invalidateCatalogReads(chargeReadPrefixes)
	return result, nil
}

// CommerceQueryCharges queries charges, optionally scoped to one rate
// plan.
func (c *Client) CommerceQueryCharges(ctx context.Context, ratePlanID string, filters map[string]any) (*Result, error) {
	data := clone(filters)
	if ratePlanID != "" {
		data["productRatePlanId"] = ratePlanID
	}
	return c.Request(ctx, http.MethodPost, "/commerce/product-rate-plan-charges/query", data, nil, false)
}

// ---------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------

// GetSettingsBatch fetches multiple tenant settings in one batch call.
// Each url is a settings path like "/billing-rules".
func (c *Client) GetSettingsBatch(ctx context.Context, urls []string) (*Result, error) {
	requests := make([]map[string]any, 0, len(urls))
	for i, u := range urls {
		requests = append(requests, map[string]any{
			"id":     fmt.Sprintf("req-%d", i),
			"method": http.MethodGet,
			"url":    u,
		})
	}
	return c.Request(ctx, http.MethodPost, "/settings/batch-requests",
		map[string]any{"requests": requests}, nil, false)
}

// clone shallow-copies a map so injected fields never mutate the
// caller's argument.
func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
