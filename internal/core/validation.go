package core

// validation.go checks parsed rows before they are reconciled.
//
// Struct-level rules (required name, known entity type, status enum) are
// declared as validator tags on FlatRow. Rules that need more than one field
// or the identifier helpers are checked by hand afterwards. Errors block the
// row; warnings are reported but the row is still classified.

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string `json:"field"`           // Column name
	Value   string `json:"value,omitempty"` // The invalid value
	Message string `json:"message"`         // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationResult contains the result of validating a row.
type ValidationResult struct {
	Valid    bool              `json:"valid"`              // True if no errors
	Errors   []ValidationError `json:"errors,omitempty"`   // Blocking problems
	Warnings []ValidationError `json:"warnings,omitempty"` // Non-blocking problems
}

var (
	rowValidator     *validator.Validate
	rowValidatorOnce sync.Once
)

func getRowValidator() *validator.Validate {
	rowValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// Registration only fails for an empty tag or nil func.
		_ = v.RegisterValidation("entitykind", func(fl validator.FieldLevel) bool {
			_, ok := ParseEntityKind(fl.Field().String())
			return ok
		})
		rowValidator = v
	})
	return rowValidator
}

// ValidateRow validates a single parsed row and returns all problems.
func ValidateRow(row FlatRow) ValidationResult {
	result := ValidationResult{Valid: true}

	trimmed := row
	trimmed.EntityType = strings.TrimSpace(row.EntityType)
	trimmed.Name = strings.TrimSpace(row.Name)

	if err := getRowValidator().Struct(trimmed); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result.Errors = append(result.Errors, ValidationError{
					Field:   fe.Field(),
					Value:   fmt.Sprint(fe.Value()),
					Message: tagMessage(fe),
				})
			}
		} else {
			result.Errors = append(result.Errors, ValidationError{Message: err.Error()})
		}
	}

	if trimmed.Name != "" && CleanComponent(trimmed.Name) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   ColName,
			Value:   row.Name,
			Message: "name has no letters or digits to build an identifier from",
		})
	}

	// A non-URN id is opaque; it only has to agree with the row's path.
	if id := strings.TrimSpace(row.URN); id != "" && !LooksLikeURN(id) &&
		!IDEqualsCandidate(id, row.ParentNodes, row.Name) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   ColURN,
			Value:   id,
			Message: fmt.Sprintf("id is not a urn and does not match canonical id %s", BuildCandidateID(row.ParentNodes, row.Name)),
		})
	}

	if d := strings.TrimSpace(row.DomainURN); d != "" && !LooksLikeURN(d) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   ColDomainURN,
			Value:   d,
			Message: "domain urn must start with urn:li:<type>:",
		})
	}

	if row.Kind() == KindNode {
		for _, col := range []string{ColTermSource, ColSourceRef, ColSourceURL, ColRelatedContains} {
			if v := row.Cell(col); strings.TrimSpace(v) != "" {
				result.Warnings = append(result.Warnings, ValidationError{
					Field:   col,
					Value:   v,
					Message: "ignored for node rows",
				})
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateHeaders checks that the header contains the columns needed to
// match rows. It returns the header index or an error listing what is missing.
func ValidateHeaders(headers []string) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// requiredColumns are the columns a file needs for rows to be matchable.
var requiredColumns = []string{ColEntityType, ColName, ColParentNodes}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field is empty"
	case "entitykind":
		return "entity type must be term or node"
	case "oneof":
		return fmt.Sprintf("value must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
