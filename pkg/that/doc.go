// Package that provides fluent assertions over arbitrary values.
//
//	that.That(resp.Status).Equals(200)
//	that.That(body).AsJSON().Path("user.roles[0]").Equals("admin")
//	that.That(func() error { return store.Get("missing") }).
//		Raises(store.ErrNotFound, "missing")
//
// A failing check panics with a *failure.Error of kind KindAssertion. The test
// runner recovers it and marks the test Failed. Misuse, such as ordering a
// map against a string, raises KindSetup instead and marks the test Errored.
// Inside plain go tests, wrap chains with Guard.
//
// Equals and ApproximatelyEquals go through package diff, so their failures
// carry a structured ComparisonResult. All other checks are direct predicates
// with an expected/actual description.
package that
