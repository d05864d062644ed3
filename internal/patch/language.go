package patch

import (
	"path"
	"strings"
)

// languageByExtension maps lowercase file extensions to highlighter
// language identifiers.
var languageByExtension = map[string]string{
	"go":       "go",
	"js":       "javascript",
	"jsx":      "javascript",
	"ts":       "typescript",
	"tsx":      "typescript",
	"py":       "python",
	"rb":       "ruby",
	"rs":       "rust",
	"java":     "java",
	"c":        "c",
	"h":        "c",
	"cpp":      "cpp",
	"cc":       "cpp",
	"hpp":      "cpp",
	"cs":       "csharp",
	"php":      "php",
	"swift":    "swift",
	"kt":       "kotlin",
	"scala":    "scala",
	"sh":       "bash",
	"bash":     "bash",
	"zsh":      "bash",
	"html":     "html",
	"htm":      "html",
	"css":      "css",
	"scss":     "scss",
	"less":     "less",
	"json":     "json",
	"xml":      "xml",
	"yaml":     "yaml",
	"yml":      "yaml",
	"toml":     "ini",
	"md":       "markdown",
	"markdown": "markdown",
	"sql":      "sql",
	"diff":     "diff",
	"patch":    "diff",
	"txt":      "plaintext",
}

// languageByFilename holds whole-filename matches (lowercase) that take
// precedence over extension lookup.
var languageByFilename = map[string]string{
	"dockerfile": "dockerfile",
	"makefile":   "makefile",
	".gitignore": "plaintext",
}

// DetectLanguage maps a file path to a highlighter language identifier.
// Unknown or missing extensions yield "plaintext"; it never fails.
func DetectLanguage(filePath string) string {
	base := strings.ToLower(path.Base(filePath))
	if lang, ok := languageByFilename[base]; ok {
		return lang
	}

	dot := strings.LastIndex(base, ".")
	if dot < 0 || dot == len(base)-1 {
		return "plaintext"
	}
	if lang, ok := languageByExtension[base[dot+1:]]; ok {
		return lang
	}
	return "plaintext"
}
