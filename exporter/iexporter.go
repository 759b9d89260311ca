package exporter

// # Exporter
//
// consumes records from LogChannel() on a dedicated thread and delivers them
// to a destination. Stop() drains the channel before closing the stream, so
// every record accepted before Stop() is delivered.
type Exporter[log any] interface {
	// Getter & Setter
	Name() string
	LogChannel() chan<- *log
	// methods
	Start()
	Stop() error
}
