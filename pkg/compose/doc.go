// Package compose combines derivative providers into larger providers while
// preserving the composition laws of their derivatives.
//
// # Composers
//
//   - NewSum: providers sharing one parameter; derivatives add (sum rule).
//   - NewJoint: providers over disjoint parameters; derivatives stack at
//     cumulative offsets of the joint parameter.
//   - NewCompact: folds repeated sub-parameters of a compound parameter onto
//     their first occurrence, summing the contributions of every occurrence.
//   - NewMask: restricts a provider to the coordinates flagged by an
//     indicator parameter.
//   - NewTransformed: reparameterizes a provider through a transform, with an
//     optional log-Jacobian correction (chain rule).
//   - NewIncrement: the running-sum reparameterization family.
//   - NewPath: linear blend of two providers indexed by beta in [0, 1].
//   - NewCached: memoizes derivatives until the parameter changes.
//
// Composers nest freely:
//
//	joint, err := compose.NewJoint([]derivative.Provider{rates, sizes})
//	compact, err := compose.NewCompact(joint)
//	masked, err := compose.NewMask(compact, indicator)
//	logScale, err := compose.NewTransformed(masked, transform.Elementwise(transform.Exp(), masked.Dimension()),
//		compose.WithJacobian())
//
// # Densities
//
// Every composite exposes the deduplicated union of its constituents'
// density terms, so a prior shared by two likelihood components is counted
// once even though both contribute gradient terms.
//
// # Capabilities
//
// Composites resolve the derivatives their constituents support once at
// construction and report them through derivative.CapabilitiesOf. Asking a
// composite for a Hessian it cannot supply panics with an error wrapping
// derivative.ErrNotImplemented.
//
// # Concurrency
//
// Sum and Joint accept WithParallel to evaluate constituents concurrently.
// The composite owns its executor; Close releases it, after which the
// composite evaluates serially.
package compose
