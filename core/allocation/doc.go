// Package allocation matches one surplus item against a charity snapshot.
//
// RadiusFilter narrows the snapshot to candidates and GreedyPlanner splits the
// item's quantity across them, largest capacity first. Both are pure and safe
// for concurrent use on a shared, read-only snapshot.
package allocation
