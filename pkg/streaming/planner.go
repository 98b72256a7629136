package streaming

import "sort"

// WorkerAssignment lists the source file paths a single worker is
// responsible for replaying, in the order they should be opened.
type WorkerAssignment struct {
	Worker int
	Paths  []string
}

// Planner assigns a directory's worth of replay log files to worker slots.
// Files are distributed round-robin so that, when the file count does not
// divide evenly by worker count, no single worker carries more than one
// extra file over another.
type Planner struct {
	Workers int
}

// Plan assigns paths to Planner.Workers worker slots round-robin. Paths are
// sorted first so planning is deterministic regardless of directory
// iteration order. Workers is clamped to at least 1 and at most len(paths).
func (p *Planner) Plan(paths []string) []WorkerAssignment {
	if len(paths) == 0 {
		return nil
	}

	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}

	if workers > len(sorted) {
		workers = len(sorted)
	}

	assignments := make([]WorkerAssignment, workers)
	for i := range assignments {
		assignments[i].Worker = i
	}

	for i, path := range sorted {
		w := i % workers
		assignments[w].Paths = append(assignments[w].Paths, path)
	}

	return assignments
}
