// Package derivative defines the contract shared by everything that supplies
// partial derivatives of a log-density.
//
// A Provider binds a density, the parameter it is differentiated against and
// the gradient evaluated at the parameter's current values. Providers that
// can also supply second derivatives implement DiagonalHessianProvider and
// HessianProvider.
//
// # Capabilities
//
// Whether a provider supports Hessians is resolved once through a capability
// query rather than by repeated type assertions:
//
//	caps := derivative.CapabilitiesOf(p)
//	if caps.Has(derivative.FullHessian) {
//		h := derivative.AsHessian(p).Hessian()
//	}
//
// Composites report what their constituents allow through the
// CapabilityReporter interface, so a sum of a gradient-only provider and a
// Hessian provider reports Gradient only, even though the composite type
// itself has Hessian methods. Calling such a method anyway panics with an
// error wrapping ErrNotImplemented.
//
// # Invariants
//
//   - len(Gradient()) == Dimension() == Parameter().Dimension()
//   - Gradient, DiagonalHessian and Hessian are evaluated at the current
//     parameter values and leave those values unchanged on return.
//
// # Errors
//
// Assembly errors wrap one of the sentinel errors declared in this package
// and can be tested with errors.Is:
//
//	if _, err := compose.NewSum(a, b); errors.Is(err, derivative.ErrValueMismatch) {
//		...
//	}
package derivative
