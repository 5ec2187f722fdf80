package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/store"
)

// CategoryPayload is the create/update body for a category.
type CategoryPayload struct {
	Name        string `json:"name" validate:"required,min=3,max=50"`
	Description string `json:"description,omitempty" validate:"omitempty,min=10,max=500"`
	IconURL     string `json:"icon_url,omitempty" validate:"omitempty,url"`
}

func (p CategoryPayload) Payload() entity.Payload {
	out := entity.Payload{"name": p.Name}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.IconURL != "" {
		out["icon_url"] = p.IconURL
	}
	return out
}

// ServicePayload is the create/update body for a service.
type ServicePayload struct {
	Name            string   `json:"name" validate:"required,min=3,max=100"`
	CategoryID      string   `json:"category_id" validate:"required"`
	Description     string   `json:"description,omitempty" validate:"omitempty,max=1000"`
	Price           float64  `json:"price" validate:"gte=1,lte=1000000"`
	OfferPercentage *float64 `json:"offer_percentage,omitempty" validate:"omitempty,gte=1,lte=100"`
	OfferPrice      *float64 `json:"offer_price,omitempty" validate:"omitempty,gte=0"`
	DurationMinutes int      `json:"duration_minutes" validate:"gte=15,lte=1440"`
}

func (p ServicePayload) Payload() entity.Payload {
	out := entity.Payload{
		"name":             p.Name,
		"category_id":      p.CategoryID,
		"price":            p.Price,
		"duration_minutes": p.DurationMinutes,
	}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.OfferPercentage != nil {
		out["offer_percentage"] = *p.OfferPercentage
	}
	if p.OfferPrice != nil {
		out["offer_price"] = *p.OfferPrice
	}
	return out
}

// ProviderPayload is the create/update body for a service provider.
type ProviderPayload struct {
	Name            string `json:"name" validate:"required,min=2,max=80"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Phone           string `json:"phone" validate:"required,len=10,numeric"`
	CategoryID      string `json:"category_id" validate:"required"`
	ExperienceYears *int   `json:"experience_years,omitempty" validate:"omitempty,gte=0,lte=50"`
	DateOfBirth     string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

func (p ProviderPayload) Payload() entity.Payload {
	out := entity.Payload{
		"name":          p.Name,
		"email":         p.Email,
		"phone":         p.Phone,
		"category_id":   p.CategoryID,
		"date_of_birth": p.DateOfBirth,
	}
	if p.ExperienceYears != nil {
		out["experience_years"] = *p.ExperienceYears
	}
	return out
}

// UserPayload is the create/update body for a user account.
type UserPayload struct {
	Name  string `json:"name" validate:"required,min=2,max=80"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,len=10,numeric"`
	Role  string `json:"role" validate:"required,oneof=customer admin provider"`
}

func (p UserPayload) Payload() entity.Payload {
	out := entity.Payload{"name": p.Name, "email": p.Email, "role": p.Role}
	if p.Phone != "" {
		out["phone"] = p.Phone
	}
	return out
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// checkPayload validates p at the mutation boundary. The first failing field
// comes back as a store rejection so the form can attach it to that field.
func checkPayload(set *rules.RuleSet, p any) error {
	err := payloadValidator().Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("workflow: validate %s payload: %w", set.Entity(), err)
	}
	fe := fieldErrs[0]
	return store.Invalid(set.Entity(), fe.Field(), fmt.Sprintf("%s is invalid (%s)", set.Label(fe.Field()), fe.Tag()))
}
