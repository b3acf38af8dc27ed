package admin

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FormError is attached to the whole form rather than one field.
const FormError = "_form"

// Form binds request values into one *T with gin's form mapping and
// validates it with the struct's binding tags.
type Form[T any] struct {
	admin     *ModelAdmin[T]
	object    *T
	creating  bool
	submitted bool
	values    url.Values
	errors    map[string][]string
}

// FieldView is the render state of one form input.
type FieldView struct {
	Field
	Value  string
	Values []string
	Errors []string
}

// Checked reports whether choice is among the field's values.
func (v FieldView) Checked(choice string) bool {
	for _, s := range v.Values {
		if s == choice {
			return true
		}
	}
	return false
}

// FormView is what templates receive as "form".
type FormView struct {
	Fields    []FieldView
	Errors    []string
	Submitted bool
	Creating  bool
}

func (f *Form[T]) SetData(object any) {
	if o, ok := object.(*T); ok {
		f.object = o
	}
}

// Submit maps the declared fields of values onto the object and validates it.
// Parameters that are not form fields are ignored.
func (f *Form[T]) Submit(values url.Values) {
	f.submitted = true
	f.values = url.Values{}
	f.errors = map[string][]string{}

	mapped := url.Values{}
	for _, field := range f.admin.fields {
		vals, ok := values[field.param]
		if !ok {
			vals, ok = values[field.param+"[]"]
		}
		switch {
		case ok:
			mapped[field.param] = vals
			f.values[field.param] = vals
		case field.Input == InputCheckbox:
			mapped[field.param] = []string{"false"}
		case field.Multiple:
			zeroField(f.object, field.Name)
		}
	}

	if err := binding.MapFormWithTag(f.object, mapped, "form"); err != nil {
		f.addError(FormError, err.Error())
		return
	}

	if err := binding.Validator.ValidateStruct(f.object); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			f.addError(FormError, err.Error())
			return
		}
		for _, fe := range verrs {
			f.addError(f.admin.paramOf(fe.StructField()), validationMessage(fe))
		}
	}

	if f.admin.cfg.Validate != nil {
		for param, msg := range f.admin.cfg.Validate(f.admin.deps.DB, f.object, f.creating) {
			f.addError(param, msg)
		}
	}
}

func (f *Form[T]) IsSubmitted() bool { return f.submitted }

func (f *Form[T]) IsValid() bool {
	return f.submitted && len(f.errors) == 0
}

// Errors returns the validation messages keyed by form parameter.
func (f *Form[T]) Errors() map[string][]string {
	return f.errors
}

func (f *Form[T]) CreateView() any {
	view := FormView{Submitted: f.submitted, Creating: f.creating, Errors: f.errors[FormError]}
	for _, field := range f.admin.fields {
		fv := FieldView{Field: field, Errors: f.errors[field.param]}
		if submitted, ok := f.values[field.param]; ok {
			fv.Values = submitted
			if len(submitted) > 0 {
				fv.Value = submitted[0]
			}
		} else {
			fv.Values = FieldValues(f.object, field.Name)
			fv.Value = FieldValue(f.object, field.Name)
		}
		if field.Input == InputPassword {
			fv.Value = ""
			fv.Values = nil
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

func (f *Form[T]) addError(param, msg string) {
	f.errors[param] = append(f.errors[param], msg)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This value should not be blank."
	case "email":
		return "This value is not a valid email address."
	case "alphanum":
		return "This value should contain only letters and digits."
	case "min":
		return fmt.Sprintf("This value is too short. It should have %s characters or more.", fe.Param())
	case "max":
		return fmt.Sprintf("This value is too long. It should have %s characters or less.", fe.Param())
	case "gtfield":
		return fmt.Sprintf("This value should be later than %s.", fe.Param())
	default:
		return fmt.Sprintf("This value failed the %q constraint.", fe.Tag())
	}
}
