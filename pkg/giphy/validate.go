package giphy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/hashicorp/go-multierror"
)

// ValidationError contains all failed rules of a value.
type ValidationError struct {
	What string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf(`invalid %s: %s`, e.What, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type validatorWithTranslator struct {
	validate   *validator.Validate
	translator ut.Translator
}

//nolint:gochecknoglobals
var (
	validatorOnce     sync.Once
	validatorInstance *validatorWithTranslator
)

func getValidator() *validatorWithTranslator {
	validatorOnce.Do(func() {
		v := validator.New()

		// Use names of the API params and config keys in messages
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"param", "mapstructure"} {
				if name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]; name != "" && name != "-" {
					return name
				}
			}
			return field.Name
		})

		enLocale := en.New()
		translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
		if err := enTranslations.RegisterDefaultTranslations(v, translator); err != nil {
			panic(fmt.Errorf("cannot register validator translations: %w", err))
		}
		validatorInstance = &validatorWithTranslator{validate: v, translator: translator}
	})
	return validatorInstance
}

// validate a struct, all failed rules are returned in one ValidationError.
func validate(what string, value any) error {
	v := getValidator()
	return v.toError(what, v.validate.Struct(value))
}

// validateVar validates a single value by the rules.
func validateVar(what string, value any, rules string) error {
	v := getValidator()
	return v.toError(what, v.validate.Var(value, rules))
}

func (v *validatorWithTranslator) toError(what string, err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{What: what, Err: err}
	}

	var errs *multierror.Error
	for _, fe := range fieldErrs {
		// A single value validated by the validateVar has no field name
		errs = multierror.Append(errs, errors.New(strings.TrimSpace(fe.Translate(v.translator))))
	}
	if errs.Len() == 1 {
		return &ValidationError{What: what, Err: errs.Errors[0]}
	}
	errs.ErrorFormat = func(items []error) string {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			msgs = append(msgs, item.Error())
		}
		return strings.Join(msgs, "; ")
	}
	return &ValidationError{What: what, Err: errs}
}
