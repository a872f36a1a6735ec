package grabber

import "context"

type workerKey struct{}

// WithWorker tags ctx with the index of the worker handling it.
func WithWorker(ctx context.Context, worker int) context.Context {
	return context.WithValue(ctx, workerKey{}, worker)
}

// WorkerFrom returns the worker index stored by WithWorker.
func WorkerFrom(ctx context.Context) (int, bool) {
	worker, ok := ctx.Value(workerKey{}).(int)
	return worker, ok
}
