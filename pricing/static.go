package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/warp/deposit-engine/deposit"
)

// =============================================================================
// JSON CATALOG
// =============================================================================
// A catalog describes products the way the pricing service would return them:
//
//   {
//     "products": [
//       {
//         "product":       {"productCode": "FD001", "interestType": "COMPOUND", ...},
//         "interestRates": [{"rateCode": "INT12M001", "rateCumulative": 7.6, ...}],
//         "rules":         [{"ruleCode": "MIN001", "ruleValue": "10000", ...}]
//       }
//     ]
//   }

// CatalogJSON is the root of a catalog file.
type CatalogJSON struct {
	Products []ProductJSON `json:"products"`
}

// ProductJSON is one product with its slabs and rules.
type ProductJSON struct {
	Product       deposit.ProductDetails `json:"product"`
	InterestRates []deposit.InterestRate `json:"interestRates"`
	Rules         []deposit.Rule         `json:"rules"`
}

// LoadCatalog reads and parses a catalog file.
func LoadCatalog(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog JSON and validates it.
func ParseCatalog(data []byte) (*StaticProvider, error) {
	var catalog CatalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON: %w", err)
	}
	return NewStaticProvider(catalog)
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

// StaticProvider serves a fixed catalog. It is safe for concurrent use.
type StaticProvider struct {
	mu       sync.RWMutex
	products map[string]*ProductJSON
}

var _ deposit.Provider = (*StaticProvider)(nil)

// NewStaticProvider indexes a catalog by product code. Product codes must be
// present and unique.
func NewStaticProvider(catalog CatalogJSON) (*StaticProvider, error) {
	p := &StaticProvider{products: make(map[string]*ProductJSON)}
	for i := range catalog.Products {
		prod := catalog.Products[i]
		code := strings.TrimSpace(prod.Product.ProductCode)
		if code == "" {
			return nil, fmt.Errorf("product %d: productCode is required", i)
		}
		if _, dup := p.products[code]; dup {
			return nil, fmt.Errorf("product %s: duplicate productCode", code)
		}
		for _, r := range prod.Rules {
			if _, err := r.Value(); err != nil {
				return nil, fmt.Errorf("product %s: rule %s: non-numeric value %q", code, r.RuleCode, r.RuleValue)
			}
		}
		prod.Product.ProductCode = code
		p.products[code] = &prod
	}
	return p, nil
}

// ProductCodes returns the catalog's product codes in sorted order.
func (p *StaticProvider) ProductCodes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	codes := make([]string, 0, len(p.products))
	for code := range p.products {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SetInterestRates replaces a product's slabs, creating the product if needed.
func (p *StaticProvider) SetInterestRates(productCode string, rates []deposit.InterestRate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.product(productCode).InterestRates = rates
}

// SetRule adds or replaces a rule by code.
func (p *StaticProvider) SetRule(productCode string, rule deposit.Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prod := p.product(productCode)
	for i := range prod.Rules {
		if prod.Rules[i].RuleCode == rule.RuleCode {
			prod.Rules[i] = rule
			return
		}
	}
	prod.Rules = append(prod.Rules, rule)
}

func (p *StaticProvider) InterestRates(_ context.Context, productCode string) ([]deposit.InterestRate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	prod, ok := p.products[productCode]
	if !ok {
		return nil, nil
	}
	out := make([]deposit.InterestRate, len(prod.InterestRates))
	copy(out, prod.InterestRates)
	return out, nil
}

func (p *StaticProvider) InterestRateByCode(_ context.Context, productCode, rateCode string) (*deposit.InterestRate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	prod, ok := p.products[productCode]
	if !ok {
		return nil, nil
	}
	for _, r := range prod.InterestRates {
		if r.RateCode == rateCode {
			rate := r
			return &rate, nil
		}
	}
	return nil, nil
}

func (p *StaticProvider) Rules(_ context.Context, productCode string, page, size int) (*deposit.RulePage, error) {
	if page < 0 || size <= 0 {
		return nil, fmt.Errorf("invalid page %d size %d", page, size)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var rules []deposit.Rule
	if prod, ok := p.products[productCode]; ok {
		rules = prod.Rules
	}

	total := len(rules)
	totalPages := (total + size - 1) / size
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	content := make([]deposit.Rule, end-start)
	copy(content, rules[start:end])

	return &deposit.RulePage{
		Content:       content,
		Number:        page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page+1 >= totalPages,
		Empty:         len(content) == 0,
	}, nil
}

func (p *StaticProvider) RuleByCode(_ context.Context, productCode, ruleCode string) (*deposit.Rule, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	prod, ok := p.products[productCode]
	if !ok {
		return nil, nil
	}
	for _, r := range prod.Rules {
		if r.RuleCode == ruleCode {
			rule := r
			return &rule, nil
		}
	}
	return nil, nil
}

func (p *StaticProvider) ProductDetails(_ context.Context, productCode string) (*deposit.ProductDetails, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	prod, ok := p.products[productCode]
	if !ok {
		return nil, nil
	}
	details := prod.Product
	return &details, nil
}

// product returns the product entry, creating it. Caller holds the write lock.
func (p *StaticProvider) product(code string) *ProductJSON {
	prod, ok := p.products[code]
	if !ok {
		prod = &ProductJSON{Product: deposit.ProductDetails{ProductCode: code}}
		p.products[code] = prod
	}
	return prod
}
