package that

import (
	"testing"

	"that/pkg/failure"
)

// Guard runs fn inside a standard go test and reports a failed chain through
// tb instead of crashing the test binary:
//
//	func TestUser(t *testing.T) {
//		that.Guard(t, func() {
//			that.That(user).Path("roles[0]").Equals("admin")
//		})
//	}
func Guard(tb testing.TB, fn func()) {
	tb.Helper()
	err := failure.Catch(fn)
	if err == nil {
		return
	}
	if fe, ok := failure.As(err); ok {
		tb.Fatal(fe.Detail())
		return
	}
	tb.Fatal(err)
}
