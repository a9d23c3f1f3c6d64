package routegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
)

// The reflective path serves handlers that have no generated dispatcher.
// It supports the same parameter and result shapes as generated code, with
// two limits: parameter names are not available, so scalar parameters take
// the route wildcards in order; and GetAwaiter must be a method, since
// package-level GetAwaiter functions cannot be found at run time.

var (
	contextType  = reflect.TypeFor[context.Context]()
	requestType  = reflect.TypeFor[*http.Request]()
	responseType = reflect.TypeFor[http.ResponseWriter]()
	errorType    = reflect.TypeFor[error]()
	resultType   = reflect.TypeFor[Result]()
	stringType   = reflect.TypeFor[string]()
	boolType     = reflect.TypeFor[bool]()
)

type argBinder func(w http.ResponseWriter, r *http.Request) (reflect.Value, error)

func reflectHandler(a *App, route *Route, handler any) (http.HandlerFunc, error) {
	fn := reflect.ValueOf(handler)
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("handler must be a non-nil func, got %T", handler)
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, errors.New("variadic handlers are not supported")
	}

	wildcards := routeWildcards(route.Pattern)
	binders := make([]argBinder, ft.NumIn())
	decoded := false
	writesResponse := false
	for i := range binders {
		t := ft.In(i)
		switch {
		case t == contextType:
			binders[i] = func(w http.ResponseWriter, r *http.Request) (reflect.Value, error) {
				return reflect.ValueOf(r.Context()), nil
			}
		case t == requestType:
			binders[i] = func(w http.ResponseWriter, r *http.Request) (reflect.Value, error) {
				return reflect.ValueOf(r), nil
			}
		case t == responseType:
			writesResponse = true
			binders[i] = func(w http.ResponseWriter, r *http.Request) (reflect.Value, error) {
				return reflect.ValueOf(w), nil
			}
		case isScalarKind(t.Kind()):
			if len(wildcards) == 0 {
				a.log().Warn("handler parameter has no route wildcard and is left at its zero value; run routegen gen to bind it by name",
					slog.String("route", route.String()),
					slog.Int("param", i),
					slog.String("type", t.String()))
				binders[i] = func(w http.ResponseWriter, r *http.Request) (reflect.Value, error) {
					return reflect.Zero(t), nil
				}
				continue
			}
			name := wildcards[0]
			wildcards = wildcards[1:]
			binders[i] = func(w http.ResponseWriter, r *http.Request) (reflect.Value, error) {
				v := reflect.New(t).Elem()
				if err := parseScalar(v, r.PathValue(name)); err != nil {
					return v, &BindError{Source: SourcePath, Name: name, Err: err}
				}
				return v, nil
			}
		case isStructType(t):
			if decoded {
				return nil, fmt.Errorf("parameter %d (%s): only one parameter can be decoded from the request", i, t)
			}
			decoded = true
			binders[i] = func(w http.ResponseWriter, r *http.Request) (reflect.Value, error) {
				v := reflect.New(t).Elem()
				var err error
				if decodesQuery(r.Method) {
					err = decodeQuery(r, v)
				} else {
					err = decodeJSON(r, v)
				}
				if err == nil {
					err = validateValue(v)
				}
				return v, err
			}
		default:
			return nil, fmt.Errorf("parameter %d has unsupported type %s", i, t)
		}
	}

	outs := ft.NumOut()
	returnsError := outs > 0 && ft.Out(outs-1) == errorType
	if returnsError {
		outs--
	}
	if outs > 1 {
		return nil, fmt.Errorf("handler returns %d values; want at most one plus an error", outs)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		args := make([]reflect.Value, len(binders))
		for i, bind := range binders {
			v, err := bind(w, r)
			if err != nil {
				a.WriteError(w, r, err)
				return
			}
			args[i] = v
		}
		out := fn.Call(args)
		if returnsError {
			if e := out[len(out)-1]; !e.IsNil() {
				a.WriteError(w, r, e.Interface().(error))
				return
			}
			out = out[:len(out)-1]
		}
		if len(out) == 0 {
			if !writesResponse {
				a.WriteNoContent(w, r)
			}
			return
		}
		a.writeValue(w, r, out[0])
	}, nil
}

// writeValue writes a handler's result: awaited first if awaitable, then
// as a Result, text for strings, JSON otherwise.
func (a *App) writeValue(w http.ResponseWriter, r *http.Request, v reflect.Value) {
	if aw, ok := reflectAwaiterOf(v); ok {
		payload, err := aw.await(r.Context())
		if err != nil {
			a.WriteError(w, r, err)
			return
		}
		if !payload.IsValid() {
			a.WriteNoContent(w, r)
			return
		}
		a.writeValue(w, r, payload)
		return
	}
	switch {
	case v.Type().Implements(resultType):
		res, _ := v.Interface().(Result)
		a.WriteResult(w, r, res)
	case v.Type() == stringType:
		a.WriteText(w, r, v.String())
	default:
		a.WriteJSON(w, r, v.Interface())
	}
}

// reflectAwaiter is the await protocol found on a value by reflection.
type reflectAwaiter struct {
	isCompleted func() bool
	onCompleted reflect.Value
	getResult   reflect.Value
}

func reflectAwaiterOf(v reflect.Value) (reflectAwaiter, bool) {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflectAwaiter{}, false
		}
		v = v.Elem()
	}
	get := v.MethodByName("GetAwaiter")
	if !get.IsValid() || get.Type().NumIn() != 0 || get.Type().NumOut() != 1 {
		return reflectAwaiter{}, false
	}
	aw := get.Call(nil)[0]

	var ra reflectAwaiter
	if m := aw.MethodByName("IsCompleted"); m.IsValid() {
		if m.Type().NumIn() != 0 || m.Type().NumOut() != 1 || m.Type().Out(0) != boolType {
			return reflectAwaiter{}, false
		}
		ra.isCompleted = func() bool { return m.Call(nil)[0].Bool() }
	} else if f, ok := boolField(aw, "IsCompleted"); ok {
		ra.isCompleted = func() bool { return f.Bool() }
	} else {
		return reflectAwaiter{}, false
	}

	on := aw.MethodByName("OnCompleted")
	if !on.IsValid() || on.Type().NumIn() != 1 || on.Type().In(0).Kind() != reflect.Func || on.Type().NumOut() != 0 {
		return reflectAwaiter{}, false
	}
	res := aw.MethodByName("GetResult")
	if !res.IsValid() || res.Type().NumIn() != 0 {
		return reflectAwaiter{}, false
	}
	ra.onCompleted, ra.getResult = on, res
	return ra, true
}

func boolField(v reflect.Value, name string) (reflect.Value, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	sf, ok := v.Type().FieldByName(name)
	if !ok || !sf.IsExported() || sf.Type != boolType {
		return reflect.Value{}, false
	}
	return v.FieldByIndex(sf.Index), true
}

// await waits for completion, then returns the GetResult payload (invalid
// when there is none) or its error.
func (ra reflectAwaiter) await(ctx context.Context) (reflect.Value, error) {
	if !ra.isCompleted() {
		done := make(chan struct{})
		var once sync.Once
		contType := ra.onCompleted.Type().In(0)
		cont := reflect.MakeFunc(contType, func([]reflect.Value) []reflect.Value {
			once.Do(func() { close(done) })
			results := make([]reflect.Value, contType.NumOut())
			for i := range results {
				results[i] = reflect.Zero(contType.Out(i))
			}
			return results
		})
		ra.onCompleted.Call([]reflect.Value{cont})
		select {
		case <-done:
		case <-ctx.Done():
			return reflect.Value{}, &AwaitError{Err: ctx.Err()}
		}
	}

	out := ra.getResult.Call(nil)
	if n := len(out); n > 0 && ra.getResult.Type().Out(n-1) == errorType {
		if e := out[n-1]; !e.IsNil() {
			return reflect.Value{}, e.Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return reflect.Value{}, nil
	case 1:
		return out[0], nil
	}
	return reflect.Value{}, fmt.Errorf("GetResult returns %d values", len(out))
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isStructType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func decodesQuery(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	}
	return false
}

// routeWildcards returns the wildcard names of a ServeMux pattern in order.
func routeWildcards(pattern string) []string {
	var names []string
	for {
		open := strings.IndexByte(pattern, '{')
		if open < 0 {
			return names
		}
		end := strings.IndexByte(pattern[open:], '}')
		if end < 0 {
			return names
		}
		name := strings.TrimSuffix(pattern[open+1:open+end], "...")
		pattern = pattern[open+end+1:]
		if name != "" && name != "$" {
			names = append(names, name)
		}
	}
}
