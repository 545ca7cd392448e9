package scenario

import (
	"errors"
	"fmt"
	"net/netip"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Field binding errors.
var (
	ErrUnknownMessage  = errors.New("unknown message")
	ErrUnknownField    = errors.New("unknown field")
	ErrBadValue        = errors.New("value does not fit field")
	ErrUnsetVariable   = errors.New("variable not set")
	ErrFieldMismatch   = errors.New("field mismatch")
	ErrUnknownEnumName = errors.New("unknown enum name")
)

// maxEnum bounds the search for enum values by name.
const maxEnum = 0x400

var addrType = reflect.TypeOf(netip.Addr{})

var fieldCmp = cmp.Options{
	cmp.Comparer(func(a, b netip.Addr) bool { return a == b }),
}

// newMessage builds a message of the named kind with fields applied.
func newMessage(name string, fields map[string]any, vars map[string]any) (wire.Message, error) {
	kind, ok := wire.ParseKind(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, name)
	}
	m, ok := wire.New(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, name)
	}
	v := reflect.ValueOf(m).Elem()
	for key, raw := range fields {
		f, err := field(v, key)
		if err != nil {
			return nil, err
		}
		val, err := convert(raw, f.Type(), vars)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, key, err)
		}
		f.Set(val)
	}
	return m, nil
}

// matchFields checks that every listed field of m has the expected value.
func matchFields(m wire.Message, fields map[string]any, vars map[string]any) error {
	v := reflect.ValueOf(m).Elem()
	for key, raw := range fields {
		f, err := field(v, key)
		if err != nil {
			return err
		}
		want, err := convert(raw, f.Type(), vars)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if !cmp.Equal(want.Interface(), f.Interface(), fieldCmp) {
			return fmt.Errorf("%w: %s = %v, want %v", ErrFieldMismatch, key, display(f), display(want))
		}
	}
	return nil
}

// capture copies fields of m into vars.
func capture(m wire.Message, save map[string]string, vars map[string]any) error {
	v := reflect.ValueOf(m).Elem()
	for name, key := range save {
		f, err := field(v, key)
		if err != nil {
			return err
		}
		vars[name] = f.Interface()
	}
	return nil
}

// field finds an exported struct field by case-insensitive name.
func field(v reflect.Value, name string) (reflect.Value, error) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.IsExported() && strings.EqualFold(sf.Name, name) {
			return v.Field(i), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%w: %s has no %q", ErrUnknownField, t.Name(), name)
}

// convert turns a YAML value into a value of type t.
func convert(raw any, t reflect.Type, vars map[string]any) (reflect.Value, error) {
	if s, ok := raw.(string); ok && strings.HasPrefix(s, "$") {
		val, ok := vars[s[1:]]
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnsetVariable, s)
		}
		raw = val
	}

	rv := reflect.ValueOf(raw)
	if rv.IsValid() && rv.Type() == t {
		return rv, nil
	}

	out := reflect.New(t).Elem()
	switch {
	case t == addrType:
		s, ok := raw.(string)
		if !ok {
			return out, fmt.Errorf("%w: %v is not an address", ErrBadValue, raw)
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrBadValue, err)
		}
		out.Set(reflect.ValueOf(a))

	case t.Kind() == reflect.String:
		s, ok := raw.(string)
		if !ok {
			s = fmt.Sprint(raw)
		}
		out.SetString(s)

	case t.Kind() == reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return out, fmt.Errorf("%w: %v is not a bool", ErrBadValue, raw)
		}
		out.SetBool(b)

	case isInt(t.Kind()), isUint(t.Kind()):
		n, err := number(raw, t)
		if err != nil {
			return out, err
		}
		if isInt(t.Kind()) {
			if out.OverflowInt(n) {
				return out, fmt.Errorf("%w: %d overflows %s", ErrBadValue, n, t)
			}
			out.SetInt(n)
		} else {
			if n < 0 || out.OverflowUint(uint64(n)) {
				return out, fmt.Errorf("%w: %d overflows %s", ErrBadValue, n, t)
			}
			out.SetUint(uint64(n))
		}

	default:
		return out, fmt.Errorf("%w: %s fields are not supported", ErrBadValue, t)
	}
	return out, nil
}

// number returns the integer a YAML value denotes for type t. Strings are
// looked up among the names of t's values.
func number(raw any, t reflect.Type) (int64, error) {
	rv := reflect.ValueOf(raw)
	switch {
	case !rv.IsValid():
	case isInt(rv.Kind()):
		return rv.Int(), nil
	case isUint(rv.Kind()):
		return int64(rv.Uint()), nil
	case rv.Kind() == reflect.Float64 && rv.Float() == float64(int64(rv.Float())):
		return int64(rv.Float()), nil
	case rv.Kind() == reflect.String:
		return enumValue(rv.String(), t)
	}
	return 0, fmt.Errorf("%w: %v is not a number", ErrBadValue, raw)
}

// enumValue finds the value of t whose String method returns name.
func enumValue(name string, t reflect.Type) (int64, error) {
	if !t.Implements(reflect.TypeOf((*fmt.Stringer)(nil)).Elem()) {
		return 0, fmt.Errorf("%w: %q for %s", ErrUnknownEnumName, name, t)
	}
	v := reflect.New(t).Elem()
	for i := int64(0); i < maxEnum; i++ {
		if isInt(t.Kind()) {
			v.SetInt(i)
		} else {
			v.SetUint(uint64(i))
		}
		if strings.EqualFold(v.Interface().(fmt.Stringer).String(), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q for %s", ErrUnknownEnumName, name, t)
}

func display(v reflect.Value) string {
	if s, ok := v.Interface().(fmt.Stringer); ok && v.Kind() != reflect.Struct {
		return fmt.Sprintf("%s(%v)", s.String(), reflectNumber(v))
	}
	return fmt.Sprintf("%v", v.Interface())
}

func reflectNumber(v reflect.Value) any {
	switch {
	case isInt(v.Kind()):
		return v.Int()
	case isUint(v.Kind()):
		return v.Uint()
	default:
		return v.Interface()
	}
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}
