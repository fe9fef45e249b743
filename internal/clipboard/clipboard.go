// Package clipboard serializes access to the OS clipboard behind a single
// process-wide mutex, as required by §5 (Concurrency & Resource Model):
// "Clipboard access is serialized by a process-wide mutex; the clipboard
// handle is initialized lazily on first access and all operations acquire
// the mutex briefly."
package clipboard

import (
	"sync"

	"github.com/atotto/clipboard"
)

var mu sync.Mutex

// Yank copies text to the system clipboard. Errors (e.g. no clipboard
// utility available in headless CI) are returned, not panicked on.
func Yank(text string) error {
	mu.Lock()
	defer mu.Unlock()
	return clipboard.WriteAll(text)
}
