package constants

import "strings"

// PDFExtensions and ImageExtensions decide which document reader handles an
// input path.
var PDFExtensions = map[string]struct{}{
	"pdf": {},
}

var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDF reports whether path has a PDF extension.
func IsPDF(path string) bool {
	_, ok := PDFExtensions[extOf(path)]
	return ok
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	_, ok := ImageExtensions[extOf(path)]
	return ok
}

func extOf(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return ""
	}
	return NormalizeExt(path[idx:])
}
