package monitor

import "context"

// Backend discovers monitors from one display server and publishes them
// into its Set. There are two implementations, x11.Engine and
// wayland.Engine, and one is chosen at startup.
type Backend interface {
	// Name is "x11" or "wayland".
	Name() string
	// Start performs the initial discovery. When it returns without error
	// the Set holds the complete initial topology.
	Start(ctx context.Context) error
	// Run processes display server events until ctx is done or the
	// connection fails.
	Run(ctx context.Context) error
	Monitors() *Set
	Close() error
}
