// Package testutil provides shared test helpers: a fake tool provider with
// scripted results and call recording, plus response builders for the mock
// model backend. Internal; not part of the public API surface.
package testutil
