package api

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	structValidator *validator.Validate
	translator      ut.Translator
	requiredTag     = "required"
)

func init() {
	structValidator = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(structValidator, translator)

	// Use JSON tag names for errors instead of Go struct names.
	structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = structValidator.RegisterTranslation(requiredTag, translator,
		func(t ut.Translator) error { return t.Add(requiredTag, "this field is required", true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(requiredTag, fe.Field())
			return s
		},
	)
}

// validationError carries translated messages keyed by JSON field path.
type validationError struct {
	fields map[string]string
}

func (e *validationError) Error() string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.fields[k]
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func validate(v any) error {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// Namespace is "requestType.field[0].sub"; drop the type name.
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		fields[key] = fe.Translate(translator)
	}
	return &validationError{fields: fields}
}
