package core

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	e164Tag  = "e164"
	e164Text = "enter a valid phone number (e.g. +12125552368)"

	datetimeTag  = "datetime"
	datetimeText = "enter a valid date (YYYY-MM-DD)"

	// {0} is the tag's param
	rangeTexts = map[string]string{
		"min": "must be at least {0}",
		"max": "must be at most {0}",
	}
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, e164Tag, e164Text, true)
	RegisterCustomTranslation(validate, translator, datetimeTag, datetimeText, true)
	for tag, text := range rangeTexts {
		registerParamTranslation(validate, translator, tag, text)
	}
}

// registerParamTranslation overrides the translation of `tag`, passing its param as {0}.
func registerParamTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	err := validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Param())
			return s
		},
	)
	mustRegister(tag, err)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	err := validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
	mustRegister(tag, err)
}

// mustRegister panics on a bad translation text or a conflicting tag; both are programming errors.
func mustRegister(tag string, err error) {
	if err != nil {
		panic(errors.Wrapf(err, "registering %q translation", tag))
	}
}

// Custom Global Validators

// notBlankValidation rejects strings made of whitespace only.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
