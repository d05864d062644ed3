package patch

// ParsedPatch is the root result of parsing a patch text.
type ParsedPatch struct {
	Metadata CommitMetadata `json:"metadata"`
	Files    []FileDiff     `json:"files"`
	Stats    DiffStats      `json:"stats"`
	// Raw is the original input, byte-identical. Consumers re-hash and
	// re-compress it; the structured form is never serialized back to text.
	Raw      string    `json:"raw"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// CommitMetadata holds the mailbox-format headers preceding the diff body,
// as produced by git format-patch. All fields are optional.
type CommitMetadata struct {
	CommitHash  string   `json:"commitHash,omitempty"`
	Author      string   `json:"author,omitempty"`
	AuthorEmail string   `json:"authorEmail,omitempty"`
	Date        string   `json:"date,omitempty"` // literal header text, not parsed
	Message     string   `json:"message,omitempty"`
	Refs        []string `json:"refs,omitempty"`
}

// FileDiff represents the diff for a single file.
type FileDiff struct {
	OldPath   string `json:"oldPath"`
	NewPath   string `json:"newPath"`
	Type      string `json:"type"` // "modified", "added", "deleted", "renamed"
	Hunks     []Hunk `json:"hunks"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	IsBinary  bool   `json:"isBinary"`
}

// File change types.
const (
	TypeModified = "modified"
	TypeAdded    = "added"
	TypeDeleted  = "deleted"
	TypeRenamed  = "renamed"
)

// Hunk represents a contiguous block of changes within a file diff.
type Hunk struct {
	OldStart int        `json:"oldStart"`
	OldLines int        `json:"oldLines"`
	NewStart int        `json:"newStart"`
	NewLines int        `json:"newLines"`
	Heading  string     `json:"heading"` // trailing context after the second @@
	Lines    []HunkLine `json:"lines"`
}

// HunkLine is a single classified line within a hunk, marker stripped.
type HunkLine struct {
	Type    string `json:"type"` // "add", "del", "context"
	Content string `json:"content"`
}

// Hunk line types.
const (
	LineAdd     = "add"
	LineDel     = "del"
	LineContext = "context"
)

// DiffStats aggregates per-file counters. It is always recomputed from
// Files, never mutated independently.
type DiffStats struct {
	FilesChanged int `json:"filesChanged"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
}

// Warning records a section the parser degraded instead of failing on,
// such as a diff --git line without a valid a/ b/ pair.
type Warning struct {
	Line   int    `json:"line"` // 1-based line number in the input
	Reason string `json:"reason"`
}
