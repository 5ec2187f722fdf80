package rules

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-formflow/pkg/entity"
)

// Default debounce windows used by the built-in rule sets.
const (
	CategoryDebounce = 500 * time.Millisecond
	ServiceDebounce  = 600 * time.Millisecond
	ProviderDebounce = 800 * time.Millisecond
	UserDebounce     = 800 * time.Millisecond
)

// Catalog maps entity types to the rule set used by their forms.
type Catalog struct {
	mu   sync.RWMutex
	sets map[entity.Type]*RuleSet
}

// NewCatalog builds a catalog holding the supplied rule sets. Later sets for
// the same entity replace earlier ones.
func NewCatalog(sets ...*RuleSet) *Catalog {
	c := &Catalog{sets: make(map[entity.Type]*RuleSet, len(sets))}
	for _, set := range sets {
		c.Set(set)
	}
	return c
}

// Set registers or replaces the rule set for its entity.
func (c *Catalog) Set(set *RuleSet) {
	if c == nil || set == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets == nil {
		c.sets = make(map[entity.Type]*RuleSet)
	}
	c.sets[set.Entity()] = set
}

// Get returns the rule set for t.
func (c *Catalog) Get(t entity.Type) (*RuleSet, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.sets[t]
	return set, ok
}

// Lookup returns the rule set for t or an error naming the missing entity.
func (c *Catalog) Lookup(t entity.Type) (*RuleSet, error) {
	set, ok := c.Get(t)
	if !ok {
		return nil, fmt.Errorf("rules: no rule set registered for %q", t)
	}
	return set, nil
}

// Types lists registered entity types in sorted order.
func (c *Catalog) Types() []entity.Type {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entity.Type, 0, len(c.sets))
	for t := range c.sets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge copies every rule set from other into c, replacing existing entries.
func (c *Catalog) Merge(other *Catalog) {
	if c == nil || other == nil {
		return
	}
	for _, t := range other.Types() {
		if set, ok := other.Get(t); ok {
			c.Set(set)
		}
	}
}

const (
	categoryNamePattern = `^[A-Za-z &,'()/.\-]+$`
	serviceNamePattern  = `^[A-Za-z0-9 &,'()/.\-+]+$`
	personNamePattern   = `^[A-Za-z .'\-]+$`
)

// CategoryRules returns the built-in category form rules.
func CategoryRules() *RuleSet {
	return NewBuilder(entity.Category).
		Debounce(CategoryDebounce).
		Field("name", "Category name").
		Required("Category name is required").
		NoRepeatedWhitespace("Category name cannot contain consecutive spaces").
		Forbid(`[0-9]`, "Category name cannot contain numbers").
		Pattern(categoryNamePattern, "Category name can only contain letters, spaces, and & , - ' ( ) / .").
		MinLength(3, "").
		MaxLength(50, "").
		Unique("name", "", "A category with this name already exists").
		Field("description", "Description").
		MinLength(10, "").
		MaxLength(500, "").
		Field("icon_url", "Icon").
		ImageURL("").
		MustBuild()
}

// ServiceRules returns the built-in service form rules. Service names are
// unique per category.
func ServiceRules() *RuleSet {
	return NewBuilder(entity.Service).
		Debounce(ServiceDebounce).
		Field("name", "Service name").
		Required("Service name is required").
		NoRepeatedWhitespace("Service name cannot contain consecutive spaces").
		Pattern(serviceNamePattern, "Service name contains invalid characters").
		MinLength(3, "").
		MaxLength(100, "").
		Unique("name", "category_id", "A service with this name already exists in this category").
		Field("category_id", "Category").
		Required("Please select a category").
		Field("description", "Description").
		MaxLength(1000, "").
		Field("price", "Price").
		Required("Price is required").
		Number("").
		Range(Float(1), Float(1000000), "").
		Field("offer_percentage", "Offer percentage").
		Number("").
		Range(Float(1), Float(100), "").
		Field("offer_price", "Offer price").
		Number("").
		Range(Float(0), nil, "").
		LessThan("price", "Offer price must be less than the price").
		Field("duration_minutes", "Duration").
		Required("Duration is required").
		Integer("Duration must be a whole number of minutes").
		Range(Float(15), Float(1440), "Duration must be between 15 minutes and 24 hours").
		MustBuild()
}

// ProviderRules returns the built-in service provider form rules.
func ProviderRules() *RuleSet {
	return NewBuilder(entity.Provider).
		Debounce(ProviderDebounce).
		Field("name", "Full name").
		Required("Full name is required").
		NoEdgeWhitespace("").
		NoRepeatedWhitespace("").
		Pattern(personNamePattern, "Name can only contain letters, spaces, and . ' -").
		MinLength(2, "").
		MaxLength(80, "").
		Field("email", "Email").
		Required("Email is required").
		Email("").
		MaxLength(254, "").
		Unique("email", "", "A provider with this email already exists").
		Field("phone", "Phone number").
		Required("Phone number is required").
		Phone("").
		Field("category_id", "Specialization").
		Required("Please select a specialization").
		Field("experience_years", "Experience").
		Integer("Experience must be a whole number of years").
		Range(Float(0), Float(50), "").
		Field("date_of_birth", "Date of birth").
		Required("Date of birth is required").
		Date("").
		DateRange("today-70y", "today-18y", "Provider must be between 18 and 70 years old").
		MustBuild()
}

// UserRules returns the built-in user account form rules.
func UserRules() *RuleSet {
	return NewBuilder(entity.User).
		Debounce(UserDebounce).
		Field("name", "Full name").
		Required("Full name is required").
		NoEdgeWhitespace("").
		NoRepeatedWhitespace("").
		Pattern(personNamePattern, "Name can only contain letters, spaces, and . ' -").
		MinLength(2, "").
		MaxLength(80, "").
		Field("email", "Email").
		Required("Email is required").
		Email("").
		Unique("email", "", "An account with this email already exists").
		Field("phone", "Phone number").
		Phone("").
		Field("role", "Role").
		Default("customer").
		Required("").
		Pattern(`^(customer|admin|provider)$`, "Role must be customer, admin, or provider").
		MustBuild()
}

// DefaultCatalog returns a catalog with every built-in rule set.
func DefaultCatalog() *Catalog {
	return NewCatalog(CategoryRules(), ServiceRules(), ProviderRules(), UserRules())
}
