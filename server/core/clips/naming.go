package clips

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewClipName returns a collision free file name of the form <uuid>.<ext>
func NewClipName(ext string) string {
	return fmt.Sprintf("%s.%s", uuid.NewString(), strings.TrimPrefix(ext, "."))
}

// ResolveClipPath joins name onto dir after making sure name is a bare file
// name, so request supplied names cannot escape the clip directory.
func ResolveClipPath(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid clip name: %q", name)
	}
	return filepath.Join(dir, name), nil
}
