package scanner

import (
	"path/filepath"
	"strings"
)

// sourceExtensions lists the Python source forms worth analyzing.
// Compiled artifacts (.pyc and friends) carry no statements to measure.
var sourceExtensions = map[string]bool{
	".py":  true,
	".pyw": true,
	".pyi": true,
}

// IsSourceFile reports whether the file name looks like Python source.
func IsSourceFile(name string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(name))]
}
