package dynamo

import "golang.org/x/sync/errgroup"

// Span is a half-open row range [Start, End) of a sample batch.
type Span struct {
	Start, End int
}

// Partition splits n rows into at most workers contiguous spans of at least
// minChunk rows each. The split depends only on its arguments.
func Partition(n, workers, minChunk int) []Span {
	if n <= 0 {
		return nil
	}
	if minChunk < 1 {
		minChunk = 1
	}
	if workers < 1 {
		workers = 1
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers
	spans := make([]Span, 0, workers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}

// ParallelFor runs fn once per span, concurrently when there is more than one.
func ParallelFor(spans []Span, fn func(i int, s Span) error) error {
	if len(spans) == 1 {
		return fn(0, spans[0])
	}

	var g errgroup.Group
	for i, s := range spans {
		g.Go(func() error {
			return fn(i, s)
		})
	}
	return g.Wait()
}
