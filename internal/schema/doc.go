// Package schema folds the params and metrics trees of every run into a flat,
// ordered map of field descriptors.
//
// The merge is a type union, not a type check: a field seen as an object in
// one run and as a primitive in another keeps both its children flag and its
// primitive type tags. Numeric extrema and rendered string length only ever
// widen across a merge.
package schema
