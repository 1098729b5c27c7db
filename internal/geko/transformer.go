package geko

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"gekosync/internal/models"
)

// Pending rows reference their parents by natural key; the persister resolves
// those into surrogate ids inside the run transaction.

type PendingProduct struct {
	Code             string
	Name             string
	DescriptionShort *string
	DescriptionLong  *string
	EAN              *string
	CategoryID       *string
	ProducerName     *string
	UnitID           *string
	VAT              *float64
	URL              *string
}

type PendingVariant struct {
	Code        string
	ProductCode string
	Weight      *float64
	GrossWeight *float64
}

type PendingStock struct {
	VariantCode      string
	Quantity         float64
	Available        bool
	MinOrderQuantity *float64
}

type PendingPrice struct {
	VariantCode string
	GrossPrice  *float64
	NetPrice    *float64
	SRPGross    *float64
	SRPNet      *float64
}

type PendingImage struct {
	ProductCode string
	URL         string
	IsMain      bool
	SortOrder   int
}

// TransformResult carries the per-entity batches plus every row/field level
// problem encountered. Transform errors never abort a run by themselves.
type TransformResult struct {
	Categories []models.Category
	Producers  []string
	Units      []models.Unit
	Products   []PendingProduct
	Variants   []PendingVariant
	Stocks     []PendingStock
	Prices     []PendingPrice
	Images     []PendingImage
	Errors     []models.SyncError
}

// Transformer converts the normalized parse tree into entity batches. The
// dedup maps are scoped to one run: create a Transformer per pipeline
// invocation and discard it afterwards.
type Transformer struct {
	categories map[string]models.Category
	producers  map[string]struct{}
	units      map[string]models.Unit
	products   map[string]struct{}
	variants   map[string]struct{}
	prices     map[string]int
	images     map[string]struct{}
	result     *TransformResult
}

func NewTransformer() *Transformer {
	return &Transformer{
		categories: make(map[string]models.Category),
		producers:  make(map[string]struct{}),
		units:      make(map[string]models.Unit),
		products:   make(map[string]struct{}),
		variants:   make(map[string]struct{}),
		prices:     make(map[string]int),
		images:     make(map[string]struct{}),
		result:     &TransformResult{},
	}
}

// Transform maps every product element into entity rows. A bad field is
// nulled, a bad row is skipped with an error entry; the remainder continues.
func (t *Transformer) Transform(products []map[string]any) *TransformResult {
	for i, raw := range products {
		if err := t.transformProduct(raw); err != nil {
			t.addError(models.SyncErrorValidation, err.Error(), fmt.Sprintf("product index %d", i))
		}
	}

	t.result.Categories = t.sortedCategories()
	for name := range t.producers {
		t.result.Producers = append(t.result.Producers, name)
	}
	sort.Strings(t.result.Producers)
	for _, unit := range t.units {
		t.result.Units = append(t.result.Units, unit)
	}
	sort.Slice(t.result.Units, func(i, j int) bool { return t.result.Units[i].ID < t.result.Units[j].ID })

	return t.result
}

func (t *Transformer) transformProduct(raw map[string]any) error {
	code := strings.TrimSpace(getString(raw, "code", "id", "symbol"))
	if code == "" {
		return fmt.Errorf("product without code")
	}
	if _, seen := t.products[code]; seen {
		t.addError(models.SyncErrorValidation, "duplicate product code, first occurrence wins", code)
		return nil
	}
	t.products[code] = struct{}{}

	product := PendingProduct{
		Code: code,
		Name: strings.TrimSpace(getString(raw, "name", "title")),
	}
	if product.Name == "" {
		product.Name = code
	}

	if short := strings.TrimSpace(getString(raw, "description_short", "short_description", "description")); short != "" {
		product.DescriptionShort = &short
	}
	if long := strings.TrimSpace(getString(raw, "description_long", "long_description", "long_desc")); long != "" {
		sanitized := StripScripts(long)
		product.DescriptionLong = &sanitized
	}

	if rawEAN := strings.TrimSpace(getString(raw, "ean")); rawEAN != "" {
		product.EAN = ValidateEAN(rawEAN)
		if product.EAN == nil {
			t.addError(models.SyncErrorValidation, "invalid EAN dropped: "+rawEAN, code)
		}
	}

	product.VAT = ParseNumber(firstValue(raw, "vat", "vat_rate"))

	if rawURL := getString(raw, "url", "card", "link"); rawURL != "" {
		normalized, warning := NormalizeURL(rawURL)
		if warning != "" {
			log.Printf("WARN: product %s: %s", code, warning)
		}
		if normalized == nil && strings.TrimSpace(rawURL) != "" {
			t.addError(models.SyncErrorValidation, "invalid URL dropped: "+rawURL, code)
		}
		product.URL = normalized
	}

	product.CategoryID = t.resolveCategory(raw["category"])
	product.ProducerName = t.resolveProducer(raw["producer"])
	product.UnitID = t.resolveUnit(raw["unit"])

	t.result.Products = append(t.result.Products, product)

	variantCodes := t.transformVariants(code, raw, product.VAT)
	t.transformImages(code, raw)

	// Product-level price entries attach to the first (possibly synthesized)
	// variant so they always have a row to land on.
	if entries := EnsureSlice(dig(raw, "prices", "price")); len(entries) > 0 && len(variantCodes) > 0 {
		t.transformPrices(variantCodes[0], entries, product.VAT)
	}

	return nil
}

// resolveCategory reconstructs the category chain from a path string, falling
// back to an explicit id or a slug of the name. Every path prefix level gets
// its own deterministic row so identical paths collapse across rows and runs.
func (t *Transformer) resolveCategory(raw any) *string {
	node, _ := raw.(map[string]any)

	path := ""
	if node != nil {
		path = strings.TrimSpace(getString(node, "path"))
	}
	if path == "" {
		// A bare string category is treated as a path.
		if s, ok := raw.(string); ok {
			path = strings.TrimSpace(s)
		}
	}

	if path != "" {
		segments := splitPath(path)
		if len(segments) == 0 {
			return nil
		}
		var parentID *string
		var id string
		for level := range segments {
			id = SlugifyPath(segments[:level+1])
			if _, seen := t.categories[id]; !seen {
				t.categories[id] = models.Category{
					ID:       id,
					Name:     segments[level],
					Path:     strings.Join(segments[:level+1], "/"),
					ParentID: parentID,
					Level:    level,
				}
			}
			levelID := id
			parentID = &levelID
		}
		return &id
	}

	if node == nil {
		return nil
	}

	name := strings.TrimSpace(getString(node, "name"))
	id := strings.TrimSpace(getString(node, "id"))
	if id == "" && name != "" {
		id = slugOrRaw(name)
	}
	if id == "" {
		return nil
	}
	if _, seen := t.categories[id]; !seen {
		display := name
		if display == "" {
			display = id
		}
		t.categories[id] = models.Category{ID: id, Name: display, Path: display, Level: 0}
	}
	return &id
}

func (t *Transformer) resolveProducer(raw any) *string {
	name := strings.TrimSpace(asString(raw))
	if name == "" {
		if node, ok := raw.(map[string]any); ok {
			name = strings.TrimSpace(getString(node, "name"))
		}
	}
	if name == "" {
		return nil
	}
	t.producers[name] = struct{}{}
	return &name
}

func (t *Transformer) resolveUnit(raw any) *string {
	id := strings.TrimSpace(asString(raw))
	name := id
	moq := 1.0
	if node, ok := raw.(map[string]any); ok {
		if v := strings.TrimSpace(getString(node, "id", "code")); v != "" {
			id = v
		}
		if v := strings.TrimSpace(getString(node, "name")); v != "" {
			name = v
		}
		if v := ParseNumber(firstValue(node, "moq", "min_order_quantity")); v != nil && *v > 0 {
			moq = *v
		}
	}
	if id == "" {
		return nil
	}
	if name == "" {
		name = id
	}
	if _, seen := t.units[id]; !seen {
		t.units[id] = models.Unit{ID: id, Name: name, MOQ: moq}
	}
	return &id
}

// transformVariants emits the product's variants with their nested stock and
// price rows. A product with no variants gets exactly one synthetic
// "<code>-DEFAULT" variant carrying the product-level weight.
func (t *Transformer) transformVariants(productCode string, raw map[string]any, vat *float64) []string {
	entries := EnsureSlice(dig(raw, "variants", "variant"))

	var codes []string
	for i, entry := range entries {
		node, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		code := strings.TrimSpace(getString(node, "code", "id"))
		if code == "" {
			t.addError(models.SyncErrorValidation, "variant without code skipped", fmt.Sprintf("%s variant index %d", productCode, i))
			continue
		}
		if _, seen := t.variants[code]; seen {
			t.addError(models.SyncErrorValidation, "duplicate variant code, first occurrence wins", code)
			continue
		}
		t.variants[code] = struct{}{}

		t.result.Variants = append(t.result.Variants, PendingVariant{
			Code:        code,
			ProductCode: productCode,
			Weight:      ParseNumber(firstValue(node, "weight")),
			GrossWeight: ParseNumber(firstValue(node, "gross_weight", "grossweight")),
		})
		codes = append(codes, code)

		t.transformStock(code, node)
		if prices := EnsureSlice(dig(node, "prices", "price")); len(prices) > 0 {
			t.transformPrices(code, prices, vat)
		}
	}

	if len(codes) == 0 {
		code := productCode + "-DEFAULT"
		if _, seen := t.variants[code]; !seen {
			t.variants[code] = struct{}{}
			t.result.Variants = append(t.result.Variants, PendingVariant{
				Code:        code,
				ProductCode: productCode,
				Weight:      ParseNumber(firstValue(raw, "weight")),
				GrossWeight: ParseNumber(firstValue(raw, "gross_weight", "grossweight")),
			})
			t.transformStock(code, raw)
		}
		codes = append(codes, code)
	}

	return codes
}

func (t *Transformer) transformStock(variantCode string, node map[string]any) {
	source := node
	if nested, ok := node["stock"].(map[string]any); ok {
		source = nested
	}

	quantity := ParseNumber(firstValue(source, "quantity", "stock_quantity", "qty"))
	if quantity == nil {
		return
	}

	available := *quantity > 0
	if v := firstValue(source, "availability", "available"); v != nil {
		available = ParseBool(v)
	}

	t.result.Stocks = append(t.result.Stocks, PendingStock{
		VariantCode:      variantCode,
		Quantity:         *quantity,
		Available:        available,
		MinOrderQuantity: ParseNumber(firstValue(source, "min_order_quantity", "moq")),
	})
}

// transformPrices folds typed price entries into one row per variant: retail
// populates SRP fields, wholesale the base price fields. Net values derive
// from gross and VAT when the feed omits them. Variant-level and
// product-level entries for the same variant merge into a single row, first
// value per field wins; the upsert statement tolerates exactly one row per
// variant_id.
func (t *Transformer) transformPrices(variantCode string, entries []any, vat *float64) {
	price := PendingPrice{VariantCode: variantCode}
	hasAny := false

	for _, entry := range entries {
		node, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		gross := ParseNumber(firstValue(node, "gross", "amount", "value"))
		net := ParseNumber(firstValue(node, "net"))
		if gross == nil && net == nil {
			continue
		}
		if net == nil && gross != nil && vat != nil {
			derived := *gross / (1 + *vat/100)
			net = &derived
		}

		switch strings.ToLower(strings.TrimSpace(getString(node, "type"))) {
		case "retail", "srp":
			price.SRPGross = gross
			price.SRPNet = net
		default: // wholesale is the feed's default price type
			price.GrossPrice = gross
			price.NetPrice = net
		}
		hasAny = true
	}

	if !hasAny {
		return
	}

	if idx, seen := t.prices[variantCode]; seen {
		mergePrice(&t.result.Prices[idx], price)
		return
	}
	t.prices[variantCode] = len(t.result.Prices)
	t.result.Prices = append(t.result.Prices, price)
}

// mergePrice fills only the fields the earlier row left empty.
func mergePrice(dst *PendingPrice, src PendingPrice) {
	if dst.GrossPrice == nil {
		dst.GrossPrice = src.GrossPrice
	}
	if dst.NetPrice == nil {
		dst.NetPrice = src.NetPrice
	}
	if dst.SRPGross == nil {
		dst.SRPGross = src.SRPGross
	}
	if dst.SRPNet == nil {
		dst.SRPNet = src.SRPNet
	}
}

func (t *Transformer) transformImages(productCode string, raw map[string]any) {
	entries := EnsureSlice(dig(raw, "images", "image"))
	for i, entry := range entries {
		var rawURL string
		isMain := i == 0
		order := i

		switch node := entry.(type) {
		case string:
			rawURL = node
		case map[string]any:
			rawURL = getString(node, "url", "src")
			if v := firstValue(node, "main", "is_main"); v != nil {
				isMain = ParseBool(v)
			}
			if v := ParseNumber(firstValue(node, "order", "sort_order", "position")); v != nil {
				order = int(*v)
			}
		default:
			continue
		}

		normalized, _ := NormalizeURL(rawURL)
		if normalized == nil {
			t.addError(models.SyncErrorValidation, "invalid image URL dropped: "+rawURL, productCode)
			continue
		}

		// One row per (product, url); repeated feed entries collapse onto the
		// first occurrence so the upsert never hits the same conflict key twice.
		key := productCode + "|" + *normalized
		if _, seen := t.images[key]; seen {
			continue
		}
		t.images[key] = struct{}{}

		t.result.Images = append(t.result.Images, PendingImage{
			ProductCode: productCode,
			URL:         *normalized,
			IsMain:      isMain,
			SortOrder:   order,
		})
	}
}

// sortedCategories orders parents before children so the persister can write
// them in one forward pass.
func (t *Transformer) sortedCategories() []models.Category {
	categories := make([]models.Category, 0, len(t.categories))
	for _, c := range t.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Level != categories[j].Level {
			return categories[i].Level < categories[j].Level
		}
		return categories[i].Path < categories[j].Path
	})
	return categories
}

func (t *Transformer) addError(typ models.SyncErrorType, message, context string) {
	t.result.Errors = append(t.result.Errors, models.SyncError{
		Type:      typ,
		Message:   message,
		Context:   context,
		Timestamp: time.Now().UTC(),
	})
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		trimmed := strings.TrimSpace(segment)
		if trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return segments
}

func slugOrRaw(s string) string {
	if slugged := SlugifyPath([]string{s}); slugged != "" {
		return slugged
	}
	return s
}

// getString returns the first non-empty string value among keys, unwrapping
// attribute-bearing elements to their "#text".
func getString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

// firstValue returns the first present value among keys without coercion.
func firstValue(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return nil
}
