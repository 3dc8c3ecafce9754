// Package catalog holds the immutable registry of invocable test commands.
//
// A Catalog groups APIEntry values under keyed categories. Every parameter of
// an entry is either a Static literal fixed when the catalog is defined or a
// Dynamic producer that the resolver evaluates on each resolution. Catalogs are
// validated once by New and never mutated afterwards, so they can be shared
// between goroutines without locking.
package catalog
