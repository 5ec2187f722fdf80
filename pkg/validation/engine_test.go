package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/rules"
)

func fixedNow() time.Time {
	return time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
}

func messageOf(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		return ""
	}
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validation.Error, got %T", err)
	}
	return verr.Message
}

func TestValidate_CategoryNameRejectsDigits(t *testing.T) {
	engine := New()
	set := rules.CategoryRules()

	for _, value := range []string{"abc123", "Home 2 Repair", "1Plumbing", "Cleaning9"} {
		err := engine.Validate("name", value, set, Context{})
		if err == nil {
			t.Fatalf("expected digit error for %q", value)
		}
		if got := messageOf(t, err); got != "Category name cannot contain numbers" {
			t.Fatalf("unexpected message for %q: %q", value, got)
		}
	}
}

func TestValidate_ValidCategoryNamesPass(t *testing.T) {
	engine := New()
	set := rules.CategoryRules()

	values := []string{
		"Spa",
		"Home Repair",
		"Elder Care",
		"Pest Control & Sanitisation",
		"Painting (Interior/Exterior)",
		strings.Repeat("a", 50),
	}
	for _, value := range values {
		if err := engine.Validate("name", value, set, Context{}); err != nil {
			t.Fatalf("expected %q to pass, got %v", value, err)
		}
	}
}

func TestValidate_IsIdempotent(t *testing.T) {
	engine := New()
	set := rules.ServiceRules()
	ctx := Context{Values: map[string]string{"price": "1000"}, Now: fixedNow}

	inputs := []struct{ field, value string }{
		{"name", "Deep  Clean"},
		{"price", "abc"},
		{"offer_price", "1200"},
		{"duration_minutes", "45"},
	}
	for _, in := range inputs {
		first := engine.Validate(in.field, in.value, set, ctx)
		second := engine.Validate(in.field, in.value, set, ctx)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("Validate(%s=%q) not idempotent (-first +second):\n%s", in.field, in.value, diff)
		}
	}
}

func TestValidate_ReturnsFirstFailingRule(t *testing.T) {
	engine := New()
	set := rules.CategoryRules()

	cases := map[string]string{
		"":            "Category name is required",
		"   ":         "Category name is required",
		"Ab":          "Category name must be at least 3 characters",
		"Home  Care":  "Category name cannot contain consecutive spaces",
		"Home_Repair": "Category name can only contain letters, spaces, and & , - ' ( ) / .",
		strings.Repeat("b", 51): "Category name must be at most 50 characters",
	}
	for value, want := range cases {
		got := messageOf(t, engine.Validate("name", value, set, Context{}))
		if got != want {
			t.Fatalf("Validate(%q) = %q, want %q", value, got, want)
		}
	}
}

func TestValidate_OptionalFieldsSkipWhenBlank(t *testing.T) {
	engine := New()
	set := rules.CategoryRules()

	if err := engine.Validate("description", "", set, Context{}); err != nil {
		t.Fatalf("expected blank description to pass, got %v", err)
	}
	if got := messageOf(t, engine.Validate("description", "short", set, Context{})); got != "Description must be at least 10 characters" {
		t.Fatalf("unexpected description message %q", got)
	}
	if got := messageOf(t, engine.Validate("icon_url", "ftp://x", set, Context{})); got != "Icon must be a valid http(s) URL" {
		t.Fatalf("unexpected icon message %q", got)
	}
}

func TestValidate_NumericRules(t *testing.T) {
	engine := New()
	set := rules.ServiceRules()
	ctx := Context{Values: map[string]string{"price": "1000"}}

	cases := []struct {
		field, value, want string
	}{
		{"price", "NaN", "Price must be a valid number"},
		{"price", "ten", "Price must be a valid number"},
		{"price", "0", "Price must be between 1 and 1000000"},
		{"price", "1000000", ""},
		{"offer_percentage", "120", "Offer percentage must be between 1 and 100"},
		{"offer_price", "-5", "Offer price must be at least 0"},
		{"offer_price", "1000", "Offer price must be less than the price"},
		{"offer_price", "999", ""},
		{"duration_minutes", "30.5", "Duration must be a whole number of minutes"},
		{"duration_minutes", "10", "Duration must be between 15 minutes and 24 hours"},
		{"duration_minutes", "90", ""},
	}
	for _, tc := range cases {
		got := messageOf(t, engine.Validate(tc.field, tc.value, set, ctx))
		if got != tc.want {
			t.Fatalf("Validate(%s=%q) = %q, want %q", tc.field, tc.value, got, tc.want)
		}
	}
}

func TestValidate_LessThanSkipsWhenOtherInvalid(t *testing.T) {
	engine := New()
	set := rules.ServiceRules()

	ctx := Context{Values: map[string]string{"price": ""}}
	if err := engine.Validate("offer_price", "5000", set, ctx); err != nil {
		t.Fatalf("expected offer price to pass while price is blank, got %v", err)
	}
}

func TestValidate_DateRange(t *testing.T) {
	engine := New()
	set := rules.ProviderRules()
	ctx := Context{Now: fixedNow}

	cases := map[string]string{
		"2006-06-01": "",
		"1954-06-01": "",
		"2006-06-02": "Provider must be between 18 and 70 years old",
		"1954-05-31": "Provider must be between 18 and 70 years old",
		"01/06/1990": "Date of birth must be a valid date (YYYY-MM-DD)",
	}
	for value, want := range cases {
		got := messageOf(t, engine.Validate("date_of_birth", value, set, ctx))
		if got != want {
			t.Fatalf("Validate(date_of_birth=%q) = %q, want %q", value, got, want)
		}
	}
}

func TestValidate_PersonFields(t *testing.T) {
	engine := New()
	set := rules.ProviderRules()

	cases := []struct {
		field, value, want string
	}{
		{"name", " Asha Rao", "Full name cannot start or end with spaces"},
		{"name", "Asha  Rao", "Full name cannot contain consecutive spaces"},
		{"name", "Asha R4o", "Name can only contain letters, spaces, and . ' -"},
		{"name", "Asha O'Neil-Rao", ""},
		{"email", "asha@", "Please enter a valid email address"},
		{"email", "asha@example.com", ""},
		{"phone", "12345", "Please enter a valid 10-digit mobile number"},
		{"phone", "+91 98450 12345", ""},
		{"experience_years", "2.5", "Experience must be a whole number of years"},
	}
	for _, tc := range cases {
		got := messageOf(t, engine.Validate(tc.field, tc.value, set, Context{Now: fixedNow}))
		if got != tc.want {
			t.Fatalf("Validate(%s=%q) = %q, want %q", tc.field, tc.value, got, tc.want)
		}
	}
}

func TestValidate_CustomTemplates(t *testing.T) {
	engine := New(WithMessages(map[rules.Kind]string{
		rules.KindRequired: "Please fill in {{ label|lower }}",
	}))
	set := rules.CategoryRules()

	got := messageOf(t, engine.Validate("name", "", set, Context{}))
	if got != "Category name is required" {
		t.Fatalf("explicit rule message should win over defaults, got %q", got)
	}

	set = rules.UserRules()
	got = messageOf(t, engine.Validate("role", "", set, Context{}))
	if got != "Please fill in role" {
		t.Fatalf("unexpected templated message %q", got)
	}
}

func TestValidateAll_CollectsFailingFields(t *testing.T) {
	engine := New()
	set := rules.CategoryRules()

	errs := engine.ValidateAll(set, Context{Values: map[string]string{
		"name":        "Home Repair",
		"description": "tiny",
	}})
	if len(errs) != 1 {
		t.Fatalf("expected one failing field, got %#v", errs)
	}
	if _, ok := errs["description"]; !ok {
		t.Fatalf("expected description to fail, got %#v", errs)
	}

	if errs := engine.ValidateAll(set, Context{Values: map[string]string{"name": "Home Repair"}}); errs != nil {
		t.Fatalf("expected no errors, got %#v", errs)
	}
}

func TestNormalizePhone(t *testing.T) {
	valid := map[string]string{
		"9845012345":        "9845012345",
		"+91 98450 12345":   "9845012345",
		"0091-98450-12345":  "9845012345",
		"919845012345":      "9845012345",
		"09845012345":       "9845012345",
		"(984) 501.2345":    "9845012345",
		"7012345689":        "7012345689",
	}
	for in, want := range valid {
		got, err := NormalizePhone(in)
		if err != nil {
			t.Fatalf("NormalizePhone(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}

	invalid := map[string]error{
		"98450":       ErrPhoneLength,
		"5845012345":  ErrPhonePrefix,
		"98450x2345":  ErrPhoneCharacters,
		"9999999999":  ErrPhonePattern,
		"9876543210":  ErrPhonePattern,
		"6789012345":  ErrPhonePattern,
		"98450123456": ErrPhoneLength,
	}
	for in, want := range invalid {
		if _, err := NormalizePhone(in); !errors.Is(err, want) {
			t.Fatalf("NormalizePhone(%q) error = %v, want %v", in, err, want)
		}
	}
}

func TestOfferPrice_RoundTrip(t *testing.T) {
	offer, err := OfferPrice(1000, 20)
	if err != nil {
		t.Fatalf("OfferPrice returned error: %v", err)
	}
	if offer != 800 {
		t.Fatalf("OfferPrice(1000, 20) = %v, want 800", offer)
	}

	pct, err := OfferPercentage(1000, offer)
	if err != nil {
		t.Fatalf("OfferPercentage returned error: %v", err)
	}
	if math.Abs(pct-20) > 0.01 {
		t.Fatalf("OfferPercentage(1000, 800) = %v, want 20", pct)
	}

	if offer, _ := OfferPrice(999, 33); offer != 669 {
		t.Fatalf("OfferPrice(999, 33) = %v, want 669", offer)
	}
}

func TestOfferPrice_Bounds(t *testing.T) {
	if _, err := OfferPrice(0, 10); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if _, err := OfferPrice(100, 0); !errors.Is(err, ErrInvalidPercentage) {
		t.Fatalf("expected ErrInvalidPercentage, got %v", err)
	}
	if _, err := OfferPrice(100, math.NaN()); !errors.Is(err, ErrInvalidPercentage) {
		t.Fatalf("expected ErrInvalidPercentage for NaN, got %v", err)
	}
	if offer, err := OfferPrice(100, 100); err != nil || offer != 0 {
		t.Fatalf("expected free offer, got %v %v", offer, err)
	}
	if _, err := OfferPrice(1, 1); !errors.Is(err, ErrOfferOutOfRange) {
		t.Fatalf("expected ErrOfferOutOfRange when rounding reaches the price, got %v", err)
	}
	if _, err := OfferPercentage(100, 100); !errors.Is(err, ErrOfferOutOfRange) {
		t.Fatalf("expected ErrOfferOutOfRange, got %v", err)
	}
}
