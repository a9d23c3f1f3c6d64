package b

import "github.com/broady/routegen"

type Item struct{ Name string }

func ok(id string) string { return id }

func setup(app *routegen.App, pattern string) {
	app.MapGet("/items/{id}", ok)
	app.MapGet("/pair", func() (int, int) { return 0, 0 }) // want `served by reflection: handler returns 2 values`
	app.MapPatch("/two", func(a, b Item) {})               // want `served by reflection: parameter b of type b.Item cannot be bound`
	app.MapGet(pattern, ok)                                // want `RG001`
}
