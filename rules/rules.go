//go:build ruleguard

// Package gorules holds project lint rules for go-ruleguard, loaded through
// gocritic's ruleguard checker.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TestingContext flags context.Background() and context.TODO() in tests;
// t.Context() is canceled when the test ends.
func TestingContext(m dsl.Matcher) {
	m.Match(
		`$ctx := context.Background()`,
		`$ctx = context.Background()`,
		`$ctx := context.TODO()`,
		`$ctx = context.TODO()`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead of a root context")

	m.Match(
		`$fn(context.Background(), $*args)`,
		`$fn(context.TODO(), $*args)`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, pass t.Context() instead of a root context")
}

// StdlibLogger flags the standard log package. Application code logs
// through internal/logger so module levels and file output apply.
func StdlibLogger(m dsl.Matcher) {
	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Print($*_)`,
		`log.Fatalf($*_)`,
		`log.Fatal($*_)`,
	).
		Where(m.File().Imports("log") && !m.File().Name.Matches(`_test\.go$`)).
		Report("use internal/logger instead of the standard log package")
}

// HandlerErrorJSON flags ad-hoc JSON error bodies in echo handlers. Handlers
// return errors and the HTTP error handler renders ErrorResponse.
func HandlerErrorJSON(m dsl.Matcher) {
	m.Match(
		`$c.JSON($code, map[string]string{$*_})`,
		`$c.JSON($code, map[string]any{$*_})`,
		`$c.JSON($code, echo.Map{$*_})`,
	).
		Where(m["c"].Type.Is("echo.Context")).
		Report("return an error from the handler; the error handler writes ErrorResponse")
}

// StdlibErrorsNew flags plain errors.New outside tests where the project
// errors package is not imported, so new errors carry a category.
func StdlibErrorsNew(m dsl.Matcher) {
	m.Match(`errors.New($msg)`).
		Where(m.File().Imports("errors") &&
			!m.File().Imports("github.com/xailab/xai-review/internal/errors") &&
			!m.File().Name.Matches(`_test\.go$`) &&
			!m.File().PkgPath.Matches(`internal/errors$`)).
		Report("build errors with internal/errors so they carry a category")
}

// TimeSince prefers time.Since over subtracting from time.Now().
func TimeSince(m dsl.Matcher) {
	m.Match(`time.Now().Sub($t)`).
		Report("use time.Since($t)").
		Suggest(`time.Since($t)`)
}
