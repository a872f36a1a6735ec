package linkset

import "github.com/JakeFAU/gallery-grabber/internal/grabber"

// Partition drains set through DrainIntoBatches and keeps only the non-empty
// batches, so no worker is started without links. The set is empty afterwards.
func Partition(set *Set, workers int) [][]grabber.Link {
	if set == nil {
		return nil
	}
	var batches [][]grabber.Link
	for _, batch := range set.DrainIntoBatches(workers) {
		if len(batch) > 0 {
			batches = append(batches, batch)
		}
	}
	return batches
}

// Split divides links into at most workers contiguous, non-empty batches. The
// first len(links)%workers batches hold ceil(len/workers) links and the rest
// hold one fewer, so 23 links over 10 workers yield three batches of 3 and
// seven of 2.
func Split(links []grabber.Link, workers int) [][]grabber.Link {
	if len(links) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(links) {
		workers = len(links)
	}
	base := len(links) / workers
	extra := len(links) % workers

	batches := make([][]grabber.Link, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < extra {
			size++
		}
		end := start + size
		batch := make([]grabber.Link, size)
		copy(batch, links[start:end])
		batches = append(batches, batch)
		start = end
	}
	return batches
}

// BatchSize is the largest batch Split produces: ceil(total/workers).
func BatchSize(total, workers int) int {
	if total <= 0 {
		return 0
	}
	if workers < 1 {
		workers = 1
	}
	return (total + workers - 1) / workers
}
