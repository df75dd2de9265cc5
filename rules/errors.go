//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// BareErrorsNew flags direct use of the standard errors constructor in
// production code, where the enriched builder should be used instead so
// that category and context travel with the error.
func BareErrorsNew(m dsl.Matcher) {
	m.Import("errors")

	m.Match(`errors.New($msg)`).
		Where(!m.File().Name.Matches(`.*_test\.go`) &&
			!m.File().PkgPath.Matches(`internal/errors`)).
		Report(`use the internal errors builder so the category and context are preserved`)
}

// FmtErrorfWithoutWrap flags fmt.Errorf calls that stringify an error
// instead of wrapping it, which breaks errors.Is matching downstream.
func FmtErrorfWithoutWrap(m dsl.Matcher) {
	m.Match(`fmt.Errorf($fmt, $*_, $err.Error(), $*_)`).
		Where(m["err"].Type.Implements(`error`)).
		Report(`wrap the error with %w instead of embedding $err.Error()`)
}

// TimeSinceInsteadOfSub suggests time.Since for elapsed-time measurements.
func TimeSinceInsteadOfSub(m dsl.Matcher) {
	m.Match(`time.Now().Sub($t)`).
		Report(`use time.Since($t) instead of time.Now().Sub($t)`).
		Suggest(`time.Since($t)`)
}
