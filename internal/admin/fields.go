package admin

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Input types a Field can render as.
const (
	InputText     = "text"
	InputTextarea = "textarea"
	InputPassword = "password"
	InputEmail    = "email"
	InputCheckbox = "checkbox"
	InputDatetime = "datetime-local"
	InputChoice   = "choice"
)

const datetimeLayout = "2006-01-02T15:04"

// Field describes one struct field shown in a form, list or show view.
// Name is the Go field name; the form parameter comes from its `form` tag.
type Field struct {
	Name     string
	Label    string
	Input    string
	Choices  []string
	Multiple bool
	Markdown bool
	Help     string

	param string
}

// Param is the request parameter the field binds from.
func (f Field) Param() string {
	return f.param
}

// Filter narrows a datagrid from the filter_<Name> request parameter.
type Filter struct {
	Name   string
	Label  string
	Column string
	// Match is "exact", "partial" or "bool".
	Match string
}

// Param is the request parameter carrying the filter value.
func (f Filter) Param() string {
	return "filter_" + f.Name
}

// resolveFields fills the form parameter of each field from the struct tags of t.
func resolveFields(t reflect.Type, fields []Field) ([]Field, error) {
	out := make([]Field, len(fields))
	for i, f := range fields {
		sf, ok := t.FieldByName(f.Name)
		if !ok {
			return nil, fmt.Errorf("%s has no field %s", t.Name(), f.Name)
		}
		f.param = strings.Split(sf.Tag.Get("form"), ",")[0]
		if f.param == "" || f.param == "-" {
			f.param = strings.ToLower(f.Name)
		}
		if f.Label == "" {
			f.Label = f.Name
		}
		if f.Input == "" {
			f.Input = InputText
		}
		out[i] = f
	}
	return out, nil
}

func fieldByName(object any, name string) (reflect.Value, bool) {
	v := reflect.ValueOf(object)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	fv := v.FieldByName(name)
	return fv, fv.IsValid()
}

// FieldValue formats the named field of object for display and form inputs.
func FieldValue(object any, name string) string {
	fv, ok := fieldByName(object, name)
	if !ok {
		return ""
	}
	return formatValue(fv)
}

// FieldValues returns a slice field as strings, or the single formatted value.
func FieldValues(object any, name string) []string {
	fv, ok := fieldByName(object, name)
	if !ok {
		return nil
	}
	if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.String {
		out := make([]string, fv.Len())
		for i := range out {
			out[i] = fv.Index(i).String()
		}
		return out
	}
	return []string{formatValue(fv)}
}

func formatValue(fv reflect.Value) string {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return ""
		}
		fv = fv.Elem()
	}
	switch v := fv.Interface().(type) {
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(datetimeLayout)
	case []string:
		return strings.Join(v, ", ")
	case fmt.Stringer:
		return v.String()
	}
	switch fv.Kind() {
	case reflect.Slice:
		parts := make([]string, fv.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(fv.Index(i).Interface())
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(fv.Interface())
	}
}

// identifierOf returns the ID field of object as a string.
func identifierOf(object any) string {
	return FieldValue(object, "ID")
}

func zeroField(object any, name string) {
	fv, ok := fieldByName(object, name)
	if ok && fv.CanSet() {
		fv.Set(reflect.Zero(fv.Type()))
	}
}
