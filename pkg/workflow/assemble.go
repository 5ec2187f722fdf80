package workflow

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/sanitize"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/validation"
)

func categoryAssembler(set *rules.RuleSet) form.Assembler {
	return func(values map[string]string) (entity.Payload, error) {
		p := CategoryPayload{
			Name:        sanitize.Text(values["name"]),
			Description: sanitize.Text(values["description"]),
			IconURL:     strings.TrimSpace(values["icon_url"]),
		}
		if err := checkPayload(set, p); err != nil {
			return nil, err
		}
		return p.Payload(), nil
	}
}

func serviceAssembler(set *rules.RuleSet) form.Assembler {
	return func(values map[string]string) (entity.Payload, error) {
		p := ServicePayload{
			Name:        sanitize.Text(values["name"]),
			CategoryID:  strings.TrimSpace(values["category_id"]),
			Description: sanitize.Text(values["description"]),
		}
		var err error
		if p.Price, err = requiredNumber(set, values, "price"); err != nil {
			return nil, err
		}
		duration, err := requiredNumber(set, values, "duration_minutes")
		if err != nil {
			return nil, err
		}
		p.DurationMinutes = int(duration)
		if p.OfferPercentage, err = optionalNumber(set, values, "offer_percentage"); err != nil {
			return nil, err
		}
		if p.OfferPrice, err = optionalNumber(set, values, "offer_price"); err != nil {
			return nil, err
		}
		if err := checkPayload(set, p); err != nil {
			return nil, err
		}
		if p.OfferPrice != nil && *p.OfferPrice >= p.Price {
			return nil, store.Invalid(set.Entity(), "offer_price", "Offer price must be less than the price")
		}
		return p.Payload(), nil
	}
}

func providerAssembler(set *rules.RuleSet) form.Assembler {
	return func(values map[string]string) (entity.Payload, error) {
		phone, err := validation.NormalizePhone(values["phone"])
		if err != nil {
			return nil, store.Invalid(set.Entity(), "phone", set.Label("phone")+" is invalid")
		}
		p := ProviderPayload{
			Name:        sanitize.Text(values["name"]),
			Email:       strings.ToLower(strings.TrimSpace(values["email"])),
			Phone:       phone,
			CategoryID:  strings.TrimSpace(values["category_id"]),
			DateOfBirth: strings.TrimSpace(values["date_of_birth"]),
		}
		years, err := optionalNumber(set, values, "experience_years")
		if err != nil {
			return nil, err
		}
		if years != nil {
			n := int(*years)
			p.ExperienceYears = &n
		}
		if err := checkPayload(set, p); err != nil {
			return nil, err
		}
		return p.Payload(), nil
	}
}

func userAssembler(set *rules.RuleSet) form.Assembler {
	return func(values map[string]string) (entity.Payload, error) {
		p := UserPayload{
			Name:  sanitize.Text(values["name"]),
			Email: strings.ToLower(strings.TrimSpace(values["email"])),
			Role:  strings.TrimSpace(values["role"]),
		}
		if raw := strings.TrimSpace(values["phone"]); raw != "" {
			phone, err := validation.NormalizePhone(raw)
			if err != nil {
				return nil, store.Invalid(set.Entity(), "phone", set.Label("phone")+" is invalid")
			}
			p.Phone = phone
		}
		if err := checkPayload(set, p); err != nil {
			return nil, err
		}
		return p.Payload(), nil
	}
}

func requiredNumber(set *rules.RuleSet, values map[string]string, field string) (float64, error) {
	n, err := optionalNumber(set, values, field)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, store.Invalid(set.Entity(), field, set.Label(field)+" is required")
	}
	return *n, nil
}

func optionalNumber(set *rules.RuleSet, values map[string]string, field string) (*float64, error) {
	raw := strings.TrimSpace(values[field])
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, store.Invalid(set.Entity(), field, set.Label(field)+" must be a valid number")
	}
	return &n, nil
}
