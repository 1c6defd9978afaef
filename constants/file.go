package constants

import "strings"

// Document formats recorded on import runs.
const (
	PDF   = "PDF"
	EXCEL = "EXCEL"
)

// AllowedExtensions holds the extensions the importers accept, lowercased without the dot.
var AllowedExtensions = map[string]string{
	"pdf":  PDF,
	"xlsx": EXCEL,
	"xls":  EXCEL,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns PDF or EXCEL for a supported extension and "" otherwise.
func MapExtToFormat(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}
