// Package transform provides the reparameterizations used by the transform
// and increment composers.
//
// A Transform maps exposed coordinates x onto the coordinates y a model is
// defined on, y = Apply(x), and supplies the Jacobian dy/dx together with
// the log-determinant correction and its gradient. Separable transforms act
// coordinate by coordinate through Univariate maps and expose those maps so
// composers can take the elementwise fast path:
//
//	// Model defined on positive rates, sampled on the log scale.
//	t := transform.Elementwise(transform.Exp(), 3)
//
//	// Bounded proportions sampled on the logit scale.
//	t := transform.Elementwise(transform.Logistic(0, 1), 3)
//
// Increment transforms expose running sums of increments, which makes
// consecutive coordinates (for example, population sizes through time)
// weakly dependent in the sampled space.
package transform
