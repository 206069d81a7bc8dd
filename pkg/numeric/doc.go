// Package numeric cross-checks analytic derivatives against finite
// differences.
//
// The Checker probes every coordinate of a provider's parameter with a
// centered finite difference of the provider's density, compares the result
// with the analytic gradient and either returns a report (no tolerance, for
// interactive use) or fails on the first offending index:
//
//	checker, err := numeric.NewChecker(&numeric.Config{Tolerance: ptr.To(1e-4)})
//	report, err := checker.Check(ctx, provider)
//	var mismatch *numeric.MismatchError
//	if errors.As(err, &mismatch) {
//		fmt.Println(report)
//	}
//
// Probes write parameter values quietly and mark the density dirty; after
// the sweep the original vector is restored exactly and a single change
// notification is fired.
package numeric
