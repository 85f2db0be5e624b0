// Package diff computes structural differences between an expected and an
// actual value.
//
// A comparison picks one category per node (mapping, sequence, number, text
// or scalar) from both operands, then recurses. Operands in different
// categories produce a single TypeMismatch and no recursion. The result is a
// flat, ordered list of Differences, each located by a Path:
//
//	r := diff.Compare(
//		map[string]any{"name": "Alice", "age": 30},
//		map[string]any{"name": "Alice", "age": 28, "extra": 1},
//	)
//	// $.age: expected 30, got 28
//	// $.extra: unexpected key (value 1)
//
// Go maps are unordered, so their keys are visited in sorted order. Use
// Ordered, or any KeyOrderer, when insertion order matters.
//
// Numbers compare exactly unless WithTolerance is given, in which case
// abs(expected-actual) <= tolerance holds as equal. NaN is never equal to
// anything, including NaN.
package diff
