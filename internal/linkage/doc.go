// Package linkage computes the kinematics of the sliding-mass linkage.
//
// A point oscillates along the horizontal axis. A rigid bar of fixed
// length joins it to a pivot abscissa, and the height of the bar end drives
// the length of a vertical segment hanging below it. Every [Frame] is
// recomputed from the time alone, so frames can be produced in any order.
package linkage
