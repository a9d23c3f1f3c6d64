package a

import "github.com/broady/routegen"

type Item struct{ Name string }

func getItem(id string) routegen.Task[Item] { return routegen.Task[Item]{} }

func hello() string { return "hello" }

var greet = hello

var Exported = hello

var reassigned = hello

func setup(app *routegen.App, pattern string) {
	app.MapGet("/items/{id}", getItem)
	app.MapGet("/greet", greet)
	app.MapGet(pattern, hello)         // want `RG001: route pattern of MapGet is not a constant string`
	app.MapPost("/exported", Exported) // want `RG002: cannot resolve handler passed to MapPost`
	reassigned = nil
	app.MapPut("/reassigned", reassigned) // want `RG002: cannot resolve handler`
	app.Map("/both"+pattern, Exported)    // want `RG001` `RG002`
	app.MapGet("/pair", func() (int, int) { return 0, 0 })
}
