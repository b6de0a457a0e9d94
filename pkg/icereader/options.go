package icereader

// Options configures a ReadDriver's behavior.
type Options struct {
	// UseRowGroupFiltering enables row-group statistics pruning. Default
	// true.
	UseRowGroupFiltering bool
	// ScanThreadPoolEnabled enables bounded per-row-group parallelism
	// within a single file. Default false.
	ScanThreadPoolEnabled bool
	// ScanThreadPoolSize bounds the worker count when
	// ScanThreadPoolEnabled is set. Zero or negative means
	// runtime.GOMAXPROCS(0) workers.
	ScanThreadPoolSize int
}

// DefaultOptions returns this reader's stated defaults: row-group
// filtering on, thread pool off.
func DefaultOptions() Options {
	return Options{
		UseRowGroupFiltering:  true,
		ScanThreadPoolEnabled: false,
	}
}
