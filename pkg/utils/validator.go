package util

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var Validate *validator.Validate

var upperCase = regexp.MustCompile(`[A-Z]`)

func init() {
	Validate = validator.New()

	Validate.RegisterValidation("hasuppercase", validateHasUppercase)
	Validate.RegisterValidation("objectid", validateObjectID)
	Validate.RegisterValidation("rrule", validateRRule)
}

func validateHasUppercase(fl validator.FieldLevel) bool {
	return upperCase.MatchString(fl.Field().String())
}

func validateObjectID(fl validator.FieldLevel) bool {
	return primitive.IsValidObjectID(fl.Field().String())
}

func validateRRule(fl validator.FieldLevel) bool {
	_, err := ParseRecurrence(fl.Field().String())
	return err == nil
}

type ErrorResponse struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Msg   string `json:"message"`
}

func ValidateStruct(s interface{}) []*ErrorResponse {
	var errs []*ErrorResponse
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []*ErrorResponse{{Tag: "invalid", Msg: err.Error()}}
	}

	for _, err := range verrs {
		var element ErrorResponse
		element.Field = err.Field()
		element.Tag = err.Tag()

		switch err.Tag() {
		case "required":
			element.Msg = fmt.Sprintf("Field '%s' is required.", element.Field)
		case "min":
			element.Msg = fmt.Sprintf("Field '%s' must be at least %s characters/value.", element.Field, err.Param())
		case "max":
			element.Msg = fmt.Sprintf("Field '%s' must be at most %s characters/value.", element.Field, err.Param())
		case "email":
			element.Msg = "Invalid email format."
		case "hasuppercase":
			element.Msg = "Password must contain at least one uppercase letter."
		case "objectid":
			element.Msg = fmt.Sprintf("Field '%s' must be a valid id.", element.Field)
		case "rrule":
			element.Msg = fmt.Sprintf("Field '%s' must be a valid RFC 5545 recurrence rule.", element.Field)
		case "oneof":
			element.Msg = fmt.Sprintf("Field '%s' must be one of: %s.", element.Field, err.Param())
		default:
			element.Msg = fmt.Sprintf("Field '%s' failed validation on tag '%s'.", element.Field, element.Tag)
		}
		errs = append(errs, &element)
	}
	return errs
}
