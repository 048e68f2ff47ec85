package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/models"
)

// custom validation tags
const (
	widgetTypeTag = "widget_type"
	intentTag     = "intent"
)

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func New() *Validator {
	v := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	// report JSON names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(widgetTypeTag, func(fl validator.FieldLevel) bool {
		return models.IsWidgetType(models.WidgetType(fl.Field().String()))
	})
	_ = v.RegisterValidation(intentTag, func(fl validator.FieldLevel) bool {
		return models.IsIntent(models.Intent(fl.Field().String()))
	})

	val := &Validator{validate: v, translator: translator}
	val.registerCustomTranslations(widgetTypeTag, intentTag)
	return val
}

// registerCustomTranslations hooks the custom tags into the translator. The
// register func is a noop because the default translations are already loaded.
func (v *Validator) registerCustomTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = v.validate.RegisterTranslation(tag, v.translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case widgetTypeTag:
		return fe.Field() + " must be one of RankedTable, KPIGrid, HeatmapRegion, TimeSeries, StatusSLA, Distribution"
	case intentTag:
		return fe.Field() + " is not a known dashboard intent"
	default:
		return fe.Error()
	}
}

// Struct validates s and converts failures into an errs.ValidationError whose
// Fields are keyed by JSON path (e.g. "widgets[0].type").
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return errs.NewValidationError(err.Error())
	}

	fields := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		fields[fieldPath(fe)] = fe.Translate(v.translator)
	}
	return errs.NewFieldValidationError("invalid input", fields)
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
