package compute

import (
	"errors"
	"fmt"
	"strings"
)

// CRANMirror is where LoadLibrary installs missing packages from.
const CRANMirror = "http://cran.r-project.org"

// LoadLibrary makes the named library available in the engine. A library that
// is not installed yet is installed once and loaded again. It reports whether
// the library is loaded.
func (c *Channel) LoadLibrary(name string) (bool, error) {
	lit := quote(name)
	loaded, err := c.ExecuteBool("library(" + lit + ", logical.return=T)")
	if err != nil {
		var ee *EngineError
		if !errors.As(err, &ee) || !strings.Contains(ee.Output, "no package") {
			return false, err
		}
		loaded = false
	}
	if loaded {
		return true, nil
	}

	c.log.Debug("installing engine library", "library", name)
	if _, err := c.Execute("install.packages(" + lit + ", repos='" + CRANMirror + "')"); err != nil {
		return false, fmt.Errorf("installing library %q: %w", name, err)
	}
	if _, err := c.Execute("library(" + lit + ")"); err != nil {
		return false, fmt.Errorf("loading library %q after install: %w", name, err)
	}
	return true, nil
}
