package routegen

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	validate      = validator.New()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// Scalar is the set of types a single path or query value parses into.
type Scalar interface {
	~string | ~bool |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ParseRoute parses the path wildcard name.
func ParseRoute[T Scalar](r *http.Request, name string) (T, error) {
	var v T
	if err := parseScalar(reflect.ValueOf(&v).Elem(), r.PathValue(name)); err != nil {
		return v, &BindError{Source: SourcePath, Name: name, Err: err}
	}
	return v, nil
}

// ParseQuery parses the query parameter name. A missing parameter yields
// the zero value.
func ParseQuery[T Scalar](r *http.Request, name string) (T, error) {
	var v T
	s := r.URL.Query().Get(name)
	if s == "" {
		return v, nil
	}
	if err := parseScalar(reflect.ValueOf(&v).Elem(), s); err != nil {
		return v, &BindError{Source: SourceQuery, Name: name, Err: err}
	}
	return v, nil
}

func parseScalar(v reflect.Value, s string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return errors.New("unsupported kind " + v.Kind().String())
	}
	return nil
}

// BindJSON decodes the request body into a T and validates it. T may be a
// struct or a pointer to one. An empty body leaves T at its zero value
// (a pointer T is still allocated).
func BindJSON[T any](r *http.Request) (T, error) {
	var v T
	target := reflect.ValueOf(&v).Elem()
	if err := decodeJSON(r, target); err != nil {
		return v, err
	}
	return v, validateValue(target)
}

// BindQuery decodes the query string into a T and validates it.
func BindQuery[T any](r *http.Request) (T, error) {
	var v T
	target := reflect.ValueOf(&v).Elem()
	if err := decodeQuery(r, target); err != nil {
		return v, err
	}
	return v, validateValue(target)
}

// Bind decodes a T from the query string for GET, HEAD and DELETE requests
// and from the JSON body otherwise, then validates it.
func Bind[T any](r *http.Request) (T, error) {
	if decodesQuery(r.Method) {
		return BindQuery[T](r)
	}
	return BindJSON[T](r)
}

// decodeJSON and decodeQuery decode into target, which must be settable.

func decodeJSON(r *http.Request, target reflect.Value) error {
	ptr := structPointer(target)
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(ptr.Interface())
	if errors.Is(err, io.EOF) {
		return nil
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	if err != nil {
		return &BindError{Source: SourceBody, Err: err}
	}
	return nil
}

func decodeQuery(r *http.Request, target reflect.Value) error {
	ptr := structPointer(target)
	if err := schemaDecoder.Decode(ptr.Interface(), r.URL.Query()); err != nil {
		return &BindError{Source: SourceQuery, Err: err}
	}
	return nil
}

// structPointer returns a pointer to the value target holds, allocating
// it when target is a nil pointer.
func structPointer(target reflect.Value) reflect.Value {
	if target.Kind() == reflect.Pointer {
		if target.IsNil() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		return target
	}
	return target.Addr()
}

func validateValue(v reflect.Value) error {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(v.Addr().Interface())
}
