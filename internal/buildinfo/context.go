// Package buildinfo carries build-time metadata that is not user configurable.
package buildinfo

// UnknownValue is reported for metadata that was not set at build time.
const UnknownValue = "unknown"

// Context holds build-time metadata. It is created once at startup and
// passed to the components that report it.
type Context struct {
	version   string
	buildDate string
}

// NewContext creates a Context from build-time values.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the build version or UnknownValue.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build date or UnknownValue.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}
