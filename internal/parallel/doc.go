// Package parallel evaluates independent derivative providers concurrently
// and reduces their results deterministically.
//
// An Executor is owned by the composite that creates it. Each Evaluate call
// runs one task per provider on a bounded pool, stores every result at the
// provider's input position and only then reduces the results serially in
// input order, so the output is bit-identical to a serial loop regardless of
// scheduling:
//
//	exec := parallel.NewExecutor(4, len(providers))
//	defer exec.Close()
//	reducer, _ := parallel.NewReducer(parallel.SumStrategy, dims)
//	grad, err := exec.Evaluate(ctx, providers, parallel.GradientKind, reducer)
//
// No goroutine outlives an Evaluate call. Close marks the executor as
// released; later calls fail with ErrClosed and composites fall back to
// serial evaluation.
//
// A panic in a provider propagates to the caller of Evaluate. Nothing is
// reduced when any task fails.
package parallel
