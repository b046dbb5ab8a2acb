// Package rules evaluates threshold conditions against pipeline results.
//
// A rule is "field operator value" over a Result field, e.g. "fod < 1" or
// "near_tolerance > 0". The Engine remembers which (rule, job) pairs are
// firing so that repeated runs only report transitions.
package rules
