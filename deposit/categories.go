package deposit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CATEGORY CATALOG
// =============================================================================
// Product rules double as the category catalog. Rule codes are classified by
// prefix; MIN, MAX and MAXINT are product constraints, everything else in
// the table below is a customer benefit.

const rulePageSize = 100

// maxRulePages bounds a sync against a provider that never reports a last page.
const maxRulePages = 50

type rulePrefix struct {
	prefix  string
	name    string
	benefit bool
}

// Longer prefixes first so MAXINT001 is not read as MAX.
var rulePrefixes = []rulePrefix{
	{RulePrefixMaxInt, "Maximum Excess Interest", false},
	{RulePrefixMax, "Maximum Amount", false},
	{RulePrefixMin, "Minimum Amount", false},
	{"GOLD", "Gold Members Benefit", true},
	{"PLAT", "Platinum Members Benefit", true},
	{"SIL", "Silver Members Benefit", true},
	{"EMP", "Employee Benefit", true},
	{"JR", "Junior Benefit (Under 18)", true},
	{"SR", "Senior Citizen Benefit", true},
	{"DY", "Digi Youth Benefit", true},
}

// ClassifyRule returns the category prefix of a rule code and whether it is
// a benefit category. ok is false for unknown prefixes.
func ClassifyRule(ruleCode string) (prefix string, benefit bool, ok bool) {
	upper := strings.ToUpper(ruleCode)
	for _, p := range rulePrefixes {
		if strings.HasPrefix(upper, p.prefix) {
			return p.prefix, p.benefit, true
		}
	}
	return "", false, false
}

func categoryName(prefix, fallback string) string {
	for _, p := range rulePrefixes {
		if p.prefix == prefix {
			return p.name
		}
	}
	return fallback
}

// SyncSummary reports the outcome of a category sync.
type SyncSummary struct {
	ProductCode string
	Fetched     int
	Created     int
	Updated     int
	Skipped     int
}

// CategoryService lists benefit categories and mirrors them into a store.
type CategoryService struct {
	provider Provider
	store    CategoryStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewCategoryService creates a category service. store may be nil, in which
// case Sync and Stored are unavailable.
func NewCategoryService(provider Provider, store CategoryStore, logger *slog.Logger) *CategoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryService{
		provider: provider,
		store:    store,
		logger:   logger.With("component", "categories"),
		now:      time.Now,
	}
}

// Benefits returns the product's benefit categories straight from the provider.
func (s *CategoryService) Benefits(ctx context.Context, productCode string) ([]Category, error) {
	rules, err := s.allRules(ctx, productCode)
	if err != nil {
		return nil, err
	}
	var out []Category
	for _, rule := range rules {
		c, ok := s.toCategory(rule, productCode)
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Sync fetches every rule of the product and upserts its benefit categories.
func (s *CategoryService) Sync(ctx context.Context, productCode string) (*SyncSummary, error) {
	if s.store == nil {
		return nil, fmt.Errorf("category store not configured")
	}
	rules, err := s.allRules(ctx, productCode)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{ProductCode: productCode, Fetched: len(rules)}
	for _, rule := range rules {
		c, ok := s.toCategory(rule, productCode)
		if !ok {
			summary.Skipped++
			continue
		}
		created, err := s.store.UpsertCategory(ctx, c)
		if err != nil {
			return summary, fmt.Errorf("upsert category %s: %w", c.Code, err)
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}

	s.logger.Info("synced product rules",
		"product_code", productCode,
		"fetched", summary.Fetched,
		"created", summary.Created,
		"updated", summary.Updated,
		"skipped", summary.Skipped)
	return summary, nil
}

// Stored returns the categories persisted by earlier syncs.
func (s *CategoryService) Stored(ctx context.Context) ([]Category, error) {
	if s.store == nil {
		return nil, fmt.Errorf("category store not configured")
	}
	return s.store.ListCategories(ctx)
}

func (s *CategoryService) allRules(ctx context.Context, productCode string) ([]Rule, error) {
	var rules []Rule
	for page := 0; page < maxRulePages; page++ {
		resp, err := s.provider.Rules(ctx, productCode, page, rulePageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: fetch rules for %s: %v", ErrProviderUnavailable, productCode, err)
		}
		if resp == nil || len(resp.Content) == 0 {
			break
		}
		rules = append(rules, resp.Content...)
		if resp.Last || (resp.TotalPages > 0 && page+1 >= resp.TotalPages) {
			break
		}
	}
	return rules, nil
}

func (s *CategoryService) toCategory(rule Rule, productCode string) (Category, bool) {
	prefix, benefit, ok := ClassifyRule(rule.RuleCode)
	if !ok {
		s.logger.Warn("unrecognized rule code", "rule_code", rule.RuleCode)
		return Category{}, false
	}
	if !benefit {
		return Category{}, false
	}
	value, err := rule.Value()
	if err != nil {
		s.logger.Warn("rule value is not numeric", "rule_code", rule.RuleCode, "value", rule.RuleValue)
		return Category{}, false
	}
	id, _ := strconv.ParseInt(rule.RuleID, 10, 64)
	return Category{
		ID:                   id,
		Code:                 prefix,
		Name:                 categoryName(prefix, rule.RuleName),
		AdditionalPercentage: value,
		ProductCode:          productCode,
		UpdatedAt:            s.now().UTC(),
	}, true
}
