// Package proximity classifies markers as near or far from a position.
//
// The Evaluator is stateless. A marker is near when its great-circle distance
// is at most the threshold; the boundary itself counts as near.
package proximity
