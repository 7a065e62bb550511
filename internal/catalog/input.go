package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/menu-catalog/internal/common"
)

// CategoryInput is the body accepted when creating or updating a category.
type CategoryInput struct {
	Name             string   `json:"name" validate:"required"`
	Image            string   `json:"image" validate:"required"`
	Description      string   `json:"description" validate:"required"`
	TaxApplicability *bool    `json:"taxApplicability" validate:"required"`
	Tax              *float64 `json:"tax" validate:"omitempty,gte=0"`
	TaxType          string   `json:"taxType"`
}

// SubCategoryInput is the body accepted when creating or updating a subcategory. Tax
// fields are not accepted; they come from the parent category.
type SubCategoryInput struct {
	Name        string `json:"name" validate:"required"`
	Image       string `json:"image" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// ItemInput is the body accepted when creating or updating an item. An omitted
// discount means no discount.
type ItemInput struct {
	Name             string   `json:"name" validate:"required"`
	Image            string   `json:"image" validate:"required"`
	Description      string   `json:"description" validate:"required"`
	TaxApplicability *bool    `json:"taxApplicability" validate:"required"`
	Tax              *float64 `json:"tax" validate:"omitempty,gte=0"`
	BaseAmount       *float64 `json:"baseAmount" validate:"required,gte=0"`
	Discount         *float64 `json:"discount" validate:"omitempty,gte=0"`
}

func (in *CategoryInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Image = strings.TrimSpace(in.Image)
	in.Description = strings.TrimSpace(in.Description)
	in.TaxType = strings.TrimSpace(in.TaxType)
}

func (in *SubCategoryInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Image = strings.TrimSpace(in.Image)
	in.Description = strings.TrimSpace(in.Description)
}

func (in *ItemInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Image = strings.TrimSpace(in.Image)
	in.Description = strings.TrimSpace(in.Description)
}

func (in ItemInput) discount() float64 {
	if in.Discount == nil {
		return 0
	}
	return *in.Discount
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(entity string, err error) *common.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.BadRequest(fmt.Sprintf("%s validation failed: %v", entity, err), err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return common.BadRequest(fmt.Sprintf("%s validation failed: %s", entity, strings.Join(msgs, "; ")), err)
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
