package prompts

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed templates/*.txt.tmpl
var promptsFS embed.FS

// FS returns the embedded filesystem for prompts in this package.
func FS() fs.FS {
	if sub, err := fs.Sub(promptsFS, "templates"); err == nil {
		return sub
	}
	return promptsFS
}

// PathFor returns the canonical template path for a logical name.
func PathFor(name string) string {
	return fmt.Sprintf("%s.txt.tmpl", name)
}
