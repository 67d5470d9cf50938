// Package cleaner provides composable text cleaners.
// A cleaner takes text produced by one stage of a pipeline and returns the
// text the next stage should see.
package cleaner

// Cleaner transforms text into a cleaner form.
type Cleaner interface {
	// Clean returns the transformed text.
	Clean(text string) (string, error)

	// Name returns the cleaner type for logging/debugging.
	Name() string
}
