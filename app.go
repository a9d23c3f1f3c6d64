package routegen

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// App is the router handlers are registered on. Use Handler() to get an
// http.Handler for use with http.ListenAndServe.
//
// Each Map* call looks up a dispatcher generated by `routegen gen` for its
// call site. When none is registered, or the generated code is stale, the
// handler is served through reflection instead; Route.Generated reports
// which path a route uses.
type App struct {
	mu                 sync.RWMutex
	routes             []*Route
	index              map[string]int // "METHOD pattern" -> routes index
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	middlewares        []func(http.Handler) http.Handler
	logger             *slog.Logger
	maxRequestBodySize int64
}

func NewApp() *App {
	return &App{
		index:              make(map[string]int),
		maxRequestBodySize: 1 << 20, // 1MB default
	}
}

// WithErrorTransformer adds a custom error transformer.
// It returns the app for chaining.
func (a *App) WithErrorTransformer(fn ErrorTransformer) *App {
	a.errorTransformer = fn
	return a
}

// WithMaskInternalErrors enables masking of internal error messages.
// The original error is still logged.
func (a *App) WithMaskInternalErrors() *App {
	a.maskInternalErrors = true
	return a
}

// WithMiddleware adds an HTTP middleware to wrap the app.
// Middleware is applied in the order added (first added is outermost).
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithLogger sets a custom logger for the app.
// If not set, slog.Default() will be used.
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// WithMaxRequestBodySize sets the maximum request body size.
// A value of 0 means no limit. Default is 1MB (1 << 20).
func (a *App) WithMaxRequestBodySize(size int64) *App {
	a.maxRequestBodySize = size
	return a
}

func (a *App) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// Route is one registered handler.
type Route struct {
	Pattern string
	Method  string // "" matches any method

	// File and Line locate the registration call.
	File string
	Line int

	generated bool
	serve     http.HandlerFunc
}

// Generated reports whether the route is served by generated code.
func (r *Route) Generated() bool { return r.generated }

func (r *Route) String() string {
	if r.Method == "" {
		return r.Pattern
	}
	return r.Method + " " + r.Pattern
}

// MapGet registers handler for GET requests matching pattern.
func (a *App) MapGet(pattern string, handler any) *Route {
	return a.register(http.MethodGet, pattern, handler)
}

// MapPost registers handler for POST requests matching pattern.
func (a *App) MapPost(pattern string, handler any) *Route {
	return a.register(http.MethodPost, pattern, handler)
}

// MapPut registers handler for PUT requests matching pattern.
func (a *App) MapPut(pattern string, handler any) *Route {
	return a.register(http.MethodPut, pattern, handler)
}

// MapDelete registers handler for DELETE requests matching pattern.
func (a *App) MapDelete(pattern string, handler any) *Route {
	return a.register(http.MethodDelete, pattern, handler)
}

// MapPatch registers handler for PATCH requests matching pattern.
func (a *App) MapPatch(pattern string, handler any) *Route {
	return a.register(http.MethodPatch, pattern, handler)
}

// Map registers handler for every method. pattern may carry its own
// method, as in "GET /items".
func (a *App) Map(pattern string, handler any) *Route {
	return a.register("", pattern, handler)
}

// MapMethods registers handler for each of methods. It returns the route
// of the first method; with no methods it behaves like Map.
func (a *App) MapMethods(pattern string, handler any, methods ...string) *Route {
	if len(methods) == 0 {
		return a.register("", pattern, handler)
	}
	var first *Route
	for _, m := range methods {
		r := a.register(strings.ToUpper(m), pattern, handler)
		if first == nil {
			first = r
		}
	}
	return first
}

// register must be called directly by a Map* method: it identifies the
// registration by its caller's caller.
func (a *App) register(method, pattern string, handler any) *Route {
	_, file, line, _ := runtime.Caller(2)
	route := &Route{Pattern: pattern, Method: method, File: file, Line: line}

	route.serve, route.generated = a.dispatch(route, handler)

	key := route.String()
	a.mu.Lock()
	defer a.mu.Unlock()
	if i, exists := a.index[key]; exists {
		a.log().Warn("duplicate route registration",
			slog.String("route", key),
			slog.String("previous", fmt.Sprintf("%s:%d", a.routes[i].File, a.routes[i].Line)),
			slog.String("current", fmt.Sprintf("%s:%d", file, line)))
		a.routes[i] = route
		return route
	}
	a.index[key] = len(a.routes)
	a.routes = append(a.routes, route)
	return route
}

// dispatch picks the generated dispatcher for the route's call site, or
// the reflective handler. It panics when handler cannot be served at all,
// as an invalid registration is a programming error.
func (a *App) dispatch(route *Route, handler any) (http.HandlerFunc, bool) {
	for _, d := range lookupDispatcher(route.File, route.Line) {
		h, err := d(a, handler)
		if err == nil {
			return h, true
		}
		if !errors.Is(err, ErrHandlerMismatch) {
			panic(fmt.Sprintf("routegen: %s: %v", route, err))
		}
		a.log().Debug("generated dispatcher does not match handler",
			slog.String("route", route.String()),
			slog.String("site", fmt.Sprintf("%s:%d", route.File, route.Line)))
	}
	h, err := reflectHandler(a, route, handler)
	if err != nil {
		panic(fmt.Sprintf("routegen: %s: %v", route, err))
	}
	return h, false
}

// Routes returns the registered routes in registration order.
func (a *App) Routes() []*Route {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*Route(nil), a.routes...)
}

// Handler returns an http.Handler for use with http.ListenAndServe or other
// HTTP servers. The returned handler includes all configured middleware.
//
// Example:
//
//	app := routegen.NewApp().WithMiddleware(middleware.Logging(logger))
//	http.ListenAndServe(":8080", app.Handler())
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, r := range a.Routes() {
		mux.Handle(r.String(), a.wrap(r.serve))
	}
	var h http.Handler = mux
	// Apply middleware in reverse order so first added is outermost
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h
}

// wrap adds body size limiting and panic recovery.
func (a *App) wrap(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				a.log().Error("PANIC recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
				a.WriteError(w, req, Errorf(CodeInternal, "internal server error (panic): %v", rec))
			}
		}()
		if a.maxRequestBodySize > 0 && req.Body != nil {
			req.Body = http.MaxBytesReader(w, req.Body, a.maxRequestBodySize)
		}
		h(w, req)
	}
}
