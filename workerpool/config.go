package workerpool

// config holds Pool configuration, built by applying Option values over
// defaultConfig.
type config struct {
	// MaxWorkers bounds the number of concurrently executing tasks.
	// Zero (the default) means the pool sizes itself dynamically via a
	// sync.Pool of recycled workers instead of a fixed token ring.
	MaxWorkers uint

	// TasksBufferSize sizes the Submit intake channel. Zero means
	// unbuffered: Submit blocks until a dispatcher goroutine is ready to
	// receive.
	TasksBufferSize uint

	// StopOnError cancels the pool's CancellationSource the first time
	// any task returns a non-nil error, preventing further dispatch.
	// Tasks already in flight are allowed to finish.
	StopOnError bool
}

func defaultConfig() config {
	return config{
		MaxWorkers:      0,
		TasksBufferSize: 0,
		StopOnError:     false,
	}
}

// Option mutates a Pool's configuration at construction time.
type Option func(*config)

// WithFixedWorkers bounds the pool to exactly n concurrently executing
// tasks, backed by a capacity-limited token ring instead of the default
// dynamic sync.Pool.
func WithFixedWorkers(n uint) Option {
	return func(c *config) { c.MaxWorkers = n }
}

// WithTasksBufferSize sets the Submit intake channel's buffer size.
func WithTasksBufferSize(n uint) Option {
	return func(c *config) { c.TasksBufferSize = n }
}

// WithStopOnError enables early termination on the first task error.
func WithStopOnError() Option {
	return func(c *config) { c.StopOnError = true }
}
