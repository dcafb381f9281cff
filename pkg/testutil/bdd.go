package testutil

import "testing"

// Given, When, and Then wrap t.Run with a spoken-prose prefix. They exist for
// tests whose setup and assertion phases read better as sentences; plain
// subtests remain the default.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
