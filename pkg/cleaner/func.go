package cleaner

// FuncCleaner adapts a pure string transformation to the Cleaner interface.
type FuncCleaner struct {
	name string
	fn   func(string) string
}

// Func wraps fn as a named cleaner that never fails.
func Func(name string, fn func(string) string) *FuncCleaner {
	return &FuncCleaner{name: name, fn: fn}
}

// Clean applies the wrapped function.
func (c *FuncCleaner) Clean(text string) (string, error) {
	return c.fn(text), nil
}

// Name returns the configured name.
func (c *FuncCleaner) Name() string {
	return c.name
}
