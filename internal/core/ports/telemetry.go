package ports

import "io"

// Telemetry records per-source fetch progress.
//
//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks
type Telemetry interface {
	// Record starts a vertex for the named source.
	Record(name string) Vertex
	// Close flushes and closes the recording session.
	Close() error
}

// Vertex represents one source's fetch on the progress display.
type Vertex interface {
	// Stdout returns a writer for progress output attributed to this vertex.
	Stdout() io.Writer
	// Cached marks the vertex as satisfied by the cache.
	Cached()
	// Complete marks the vertex as finished, successfully or with an error.
	Complete(err error)
}
