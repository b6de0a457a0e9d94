package icereader

import (
	"sync/atomic"
	"time"
)

// Stage names one of the three per-read timers a caller can report.
type Stage string

const (
	StageRowGroupFiltering Stage = "rg_filtering"
	StageReadRowGroups     Stage = "read_row_groups"
	StageSchemaEvolution   Stage = "schema_evol_proc"
)

// Stats accumulates elapsed nanoseconds per named stage across a single
// driver Read call, read back through ReadDriver.Stats. Safe for concurrent use by worker
// goroutines, modeled on an atomic-counter Metrics type.
type Stats struct {
	rgFiltering    int64
	readRowGroups  int64
	schemaEvolProc int64
	rowGroupsRead  int64
	rowGroupsKept  int64
	rowsEmitted    int64
}

// observe runs fn and adds its elapsed duration to the named stage.
func (s *Stats) observe(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Nanoseconds()
	switch stage {
	case StageRowGroupFiltering:
		atomic.AddInt64(&s.rgFiltering, elapsed)
	case StageReadRowGroups:
		atomic.AddInt64(&s.readRowGroups, elapsed)
	case StageSchemaEvolution:
		atomic.AddInt64(&s.schemaEvolProc, elapsed)
	}
	return err
}

func (s *Stats) addRowGroupEvaluated(kept bool) {
	atomic.AddInt64(&s.rowGroupsRead, 1)
	if kept {
		atomic.AddInt64(&s.rowGroupsKept, 1)
	}
}

func (s *Stats) addRowsEmitted(n int64) {
	atomic.AddInt64(&s.rowsEmitted, n)
}

// Report is a point-in-time snapshot suitable for logging on close.
type Report struct {
	RowGroupFiltering time.Duration
	ReadRowGroups     time.Duration
	SchemaEvolProc    time.Duration
	RowGroupsRead     int64
	RowGroupsKept     int64
	RowsEmitted       int64
}

func (s *Stats) Report() Report {
	return Report{
		RowGroupFiltering: time.Duration(atomic.LoadInt64(&s.rgFiltering)),
		ReadRowGroups:     time.Duration(atomic.LoadInt64(&s.readRowGroups)),
		SchemaEvolProc:    time.Duration(atomic.LoadInt64(&s.schemaEvolProc)),
		RowGroupsRead:     atomic.LoadInt64(&s.rowGroupsRead),
		RowGroupsKept:     atomic.LoadInt64(&s.rowGroupsKept),
		RowsEmitted:       atomic.LoadInt64(&s.rowsEmitted),
	}
}
