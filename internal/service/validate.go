package service

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iurnickita/primelabel/internal/model"
)

const (
	MaxWeightLb    = 150
	MinDimensionIn = 0.1
	MaxDimensionIn = 108
	MaxDimWeightLb = 150
	MaxBulkOrders  = 50

	dimDivisorIn = 139
	dimDivisorCm = 5000
	kgToLb       = 2.20462262
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// имена полей как в JSON
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and returns a *ValidationError or nil.
func validateStruct(req any) *ValidationError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return &ValidationError{Problems: []string{err.Error()}}
	}

	verr := &ValidationError{}
	for _, fe := range fieldErrors {
		verr.Problems = append(verr.Problems, fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "min":
		return field + " must have at least " + fe.Param() + " entries"
	case "max":
		return field + " must have at most " + fe.Param() + " entries"
	default:
		return field + " is invalid"
	}
}

// validatePackage checks weight and dimensions. Oversized dimensional weight
// is a warning only.
func validatePackage(weight model.Weight, dims model.Dimensions) ([]string, *ValidationError) {
	verr := &ValidationError{}

	if !finite(weight.Value) {
		verr.Problems = append(verr.Problems, "weight.value must be a finite number")
	} else if weight.Value > 0 {
		if lb := weight.Pounds(); lb > MaxWeightLb {
			verr.Problems = append(verr.Problems,
				fmt.Sprintf("weight %.2f lb exceeds limit of %d lb", lb, MaxWeightLb))
		}
	}

	names := [3]string{"length", "width", "height"}
	values := [3]float64{dims.Length, dims.Width, dims.Height}
	l, w, h := dims.Inches()
	inches := [3]float64{l, w, h}
	allValid := true
	for i := range values {
		if !finite(values[i]) || values[i] <= 0 {
			allValid = false
			if !finite(values[i]) {
				verr.Problems = append(verr.Problems, "dimensions."+names[i]+" must be a finite number")
			}
			continue
		}
		if dims.Unit != model.DimensionUnitInch && dims.Unit != model.DimensionUnitCentimeter {
			allValid = false
			continue
		}
		if inches[i] < MinDimensionIn || inches[i] > MaxDimensionIn {
			verr.Problems = append(verr.Problems,
				fmt.Sprintf("dimensions.%s %.2f in is outside [%.1f, %d] in", names[i], inches[i], MinDimensionIn, MaxDimensionIn))
		}
	}

	var warnings []string
	if allValid {
		if dw := dimWeight(dims); dw > MaxDimWeightLb {
			warnings = append(warnings,
				fmt.Sprintf("dimensional weight %.2f lb exceeds %d lb", dw, MaxDimWeightLb))
		}
	}

	if len(verr.Problems) == 0 {
		return warnings, nil
	}
	return warnings, verr
}

// dimWeight is the billable weight in pounds derived from the volume.
func dimWeight(dims model.Dimensions) float64 {
	volume := dims.Length * dims.Width * dims.Height
	if dims.Unit == model.DimensionUnitCentimeter {
		return volume / dimDivisorCm * kgToLb
	}
	return volume / dimDivisorIn
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// validatePurchase merges struct tag problems with package rules.
func validatePurchase(req any, weight model.Weight, dims model.Dimensions) ([]string, error) {
	verr := validateStruct(req)
	warnings, perr := validatePackage(weight, dims)
	if perr != nil {
		if verr == nil {
			verr = perr
		} else {
			verr.Problems = append(verr.Problems, perr.Problems...)
		}
	}
	if verr != nil {
		return warnings, verr
	}
	return warnings, nil
}

// validateOrderIDs checks a bulk id list without other fields.
func validateOrderIDs(ids []string) error {
	cleaned := make([]string, len(ids))
	for i, id := range ids {
		cleaned[i] = strings.TrimSpace(id)
	}
	if verr := validateStruct(reprintRequest{OrderIDs: cleaned}); verr != nil {
		return verr
	}
	return nil
}
