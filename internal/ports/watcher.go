package ports

// Watcher monitors a single source file and triggers a reload when it changes.
// The adapter (fsnotify) watches the containing directory so that editors
// which replace files via rename are still observed, and filters events down
// to the target file before invoking onChange. Only one Watch call should be
// active at a time.
type Watcher interface {
	// Watch starts monitoring filePath. onChange is called with the absolute
	// path after each debounced change. The callback may be invoked from any
	// goroutine. Returns an error if the directory doesn't exist or
	// permissions are insufficient.
	Watch(filePath string, onChange func(filePath string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
