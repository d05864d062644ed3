package patch

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *ParsedPatch
	}{
		{
			name: "minimal single-file patch",
			input: `diff --git a/foo.txt b/foo.txt
index 123..456 100644
--- a/foo.txt
+++ b/foo.txt
@@ -1,2 +1,2 @@
 line one
-old line
+new line
`,
			expected: &ParsedPatch{
				Files: []FileDiff{
					{
						OldPath:   "foo.txt",
						NewPath:   "foo.txt",
						Type:      TypeModified,
						Additions: 1,
						Deletions: 1,
						Hunks: []Hunk{
							{
								OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 2,
								Lines: []HunkLine{
									{Type: LineContext, Content: "line one"},
									{Type: LineDel, Content: "old line"},
									{Type: LineAdd, Content: "new line"},
								},
							},
						},
					},
				},
				Stats: DiffStats{FilesChanged: 1, Additions: 1, Deletions: 1},
			},
		},
		{
			name: "new file",
			input: `diff --git a/new.txt b/new.txt
new file mode 100644
index 0000000..1234567
--- /dev/null
+++ b/new.txt
@@ -0,0 +1,2 @@
+line one
+line two
`,
			expected: &ParsedPatch{
				Files: []FileDiff{
					{
						OldPath:   "/dev/null",
						NewPath:   "new.txt",
						Type:      TypeAdded,
						Additions: 2,
						Hunks: []Hunk{
							{
								OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 2,
								Lines: []HunkLine{
									{Type: LineAdd, Content: "line one"},
									{Type: LineAdd, Content: "line two"},
								},
							},
						},
					},
				},
				Stats: DiffStats{FilesChanged: 1, Additions: 2},
			},
		},
		{
			name: "deleted file",
			input: `diff --git a/old.txt b/old.txt
deleted file mode 100644
index 1234567..0000000
--- a/old.txt
+++ /dev/null
@@ -1,2 +0,0 @@
-goodbye
-world
`,
			expected: &ParsedPatch{
				Files: []FileDiff{
					{
						OldPath:   "old.txt",
						NewPath:   "/dev/null",
						Type:      TypeDeleted,
						Deletions: 2,
						Hunks: []Hunk{
							{
								OldStart: 1, OldLines: 2, NewStart: 0, NewLines: 0,
								Lines: []HunkLine{
									{Type: LineDel, Content: "goodbye"},
									{Type: LineDel, Content: "world"},
								},
							},
						},
					},
				},
				Stats: DiffStats{FilesChanged: 1, Deletions: 2},
			},
		},
		{
			name: "renamed file keeps header paths",
			input: `diff --git a/before.txt b/after.txt
similarity index 95%
rename from before.txt
rename to after.txt
index 123..456 100644
--- a/before.txt
+++ b/after.txt
@@ -1 +1 @@
-alpha
+beta
`,
			expected: &ParsedPatch{
				Files: []FileDiff{
					{
						OldPath:   "before.txt",
						NewPath:   "after.txt",
						Type:      TypeRenamed,
						Additions: 1,
						Deletions: 1,
						Hunks: []Hunk{
							{
								OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1,
								Lines: []HunkLine{
									{Type: LineDel, Content: "alpha"},
									{Type: LineAdd, Content: "beta"},
								},
							},
						},
					},
				},
				Stats: DiffStats{FilesChanged: 1, Additions: 1, Deletions: 1},
			},
		},
		{
			name: "binary file has no hunks even with stray hunk headers",
			input: `diff --git a/logo.png b/logo.png
index 123..456 100644
Binary files a/logo.png and b/logo.png differ
@@ -1,2 +1,2 @@
+should not count
`,
			expected: &ParsedPatch{
				Files: []FileDiff{
					{
						OldPath:  "logo.png",
						NewPath:  "logo.png",
						Type:     TypeModified,
						IsBinary: true,
					},
				},
				Stats: DiffStats{FilesChanged: 1},
			},
		},
		{
			name: "multi-file patch preserves order",
			input: `diff --git a/a.txt b/a.txt
--- a/a.txt
+++ b/a.txt
@@ -1 +1 @@
-one
+uno
diff --git a/b.txt b/b.txt
--- a/b.txt
+++ b/b.txt
@@ -1 +1,2 @@
 keep
+two
`,
			expected: &ParsedPatch{
				Files: []FileDiff{
					{
						OldPath: "a.txt", NewPath: "a.txt", Type: TypeModified,
						Additions: 1, Deletions: 1,
						Hunks: []Hunk{
							{
								OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1,
								Lines: []HunkLine{
									{Type: LineDel, Content: "one"},
									{Type: LineAdd, Content: "uno"},
								},
							},
						},
					},
					{
						OldPath: "b.txt", NewPath: "b.txt", Type: TypeModified,
						Additions: 1,
						Hunks: []Hunk{
							{
								OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 2,
								Lines: []HunkLine{
									{Type: LineContext, Content: "keep"},
									{Type: LineAdd, Content: "two"},
								},
							},
						},
					},
				},
				Stats: DiffStats{FilesChanged: 2, Additions: 2, Deletions: 1},
			},
		},
		{
			name: "no-newline marker is skipped",
			input: `diff --git a/x.txt b/x.txt
--- a/x.txt
+++ b/x.txt
@@ -1 +1 @@
-old
\ No newline at end of file
+new
\ No newline at end of file
`,
			expected: &ParsedPatch{
				Files: []FileDiff{
					{
						OldPath: "x.txt", NewPath: "x.txt", Type: TypeModified,
						Additions: 1, Deletions: 1,
						Hunks: []Hunk{
							{
								OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1,
								Lines: []HunkLine{
									{Type: LineDel, Content: "old"},
									{Type: LineAdd, Content: "new"},
								},
							},
						},
					},
				},
				Stats: DiffStats{FilesChanged: 1, Additions: 1, Deletions: 1},
			},
		},
		{
			name: "hunk heading is captured and trimmed",
			input: `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -10,3 +10,3 @@ func main() {
 	x := 1
-	y := 2
+	y := 3
`,
			expected: &ParsedPatch{
				Files: []FileDiff{
					{
						OldPath: "main.go", NewPath: "main.go", Type: TypeModified,
						Additions: 1, Deletions: 1,
						Hunks: []Hunk{
							{
								OldStart: 10, OldLines: 3, NewStart: 10, NewLines: 3,
								Heading: "func main() {",
								Lines: []HunkLine{
									{Type: LineContext, Content: "\tx := 1"},
									{Type: LineDel, Content: "\ty := 2"},
									{Type: LineAdd, Content: "\ty := 3"},
								},
							},
						},
					},
				},
				Stats: DiffStats{FilesChanged: 1, Additions: 1, Deletions: 1},
			},
		},
		{
			name: "omitted hunk counts default to one",
			input: `diff --git a/one.txt b/one.txt
--- a/one.txt
+++ b/one.txt
@@ -5 +5 @@
-a
+b
`,
			expected: &ParsedPatch{
				Files: []FileDiff{
					{
						OldPath: "one.txt", NewPath: "one.txt", Type: TypeModified,
						Additions: 1, Deletions: 1,
						Hunks: []Hunk{
							{
								OldStart: 5, OldLines: 1, NewStart: 5, NewLines: 1,
								Lines: []HunkLine{
									{Type: LineDel, Content: "a"},
									{Type: LineAdd, Content: "b"},
								},
							},
						},
					},
				},
				Stats: DiffStats{FilesChanged: 1, Additions: 1, Deletions: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() returned error: %v", err)
			}
			if result.Raw != tt.input {
				t.Errorf("Raw is not byte-identical to input")
			}
			assertStats(t, result.Stats, tt.expected.Stats)
			assertFiles(t, result.Files, tt.expected.Files)
		})
	}
}

func assertStats(t *testing.T, got, want DiffStats) {
	t.Helper()
	if got.FilesChanged != want.FilesChanged {
		t.Errorf("stats.FilesChanged = %d, want %d", got.FilesChanged, want.FilesChanged)
	}
	if got.Additions != want.Additions {
		t.Errorf("stats.Additions = %d, want %d", got.Additions, want.Additions)
	}
	if got.Deletions != want.Deletions {
		t.Errorf("stats.Deletions = %d, want %d", got.Deletions, want.Deletions)
	}
}

func assertFiles(t *testing.T, got, want []FileDiff) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d files, want %d files", len(got), len(want))
	}
	for i, gf := range got {
		wf := want[i]
		if gf.OldPath != wf.OldPath {
			t.Errorf("file[%d].OldPath = %q, want %q", i, gf.OldPath, wf.OldPath)
		}
		if gf.NewPath != wf.NewPath {
			t.Errorf("file[%d].NewPath = %q, want %q", i, gf.NewPath, wf.NewPath)
		}
		if gf.Type != wf.Type {
			t.Errorf("file[%d].Type = %q, want %q", i, gf.Type, wf.Type)
		}
		if gf.IsBinary != wf.IsBinary {
			t.Errorf("file[%d].IsBinary = %v, want %v", i, gf.IsBinary, wf.IsBinary)
		}
		if gf.Additions != wf.Additions {
			t.Errorf("file[%d].Additions = %d, want %d", i, gf.Additions, wf.Additions)
		}
		if gf.Deletions != wf.Deletions {
			t.Errorf("file[%d].Deletions = %d, want %d", i, gf.Deletions, wf.Deletions)
		}
		if len(gf.Hunks) != len(wf.Hunks) {
			t.Fatalf("file[%d] got %d hunks, want %d hunks", i, len(gf.Hunks), len(wf.Hunks))
		}
		for j, gh := range gf.Hunks {
			wh := wf.Hunks[j]
			if gh.OldStart != wh.OldStart || gh.OldLines != wh.OldLines ||
				gh.NewStart != wh.NewStart || gh.NewLines != wh.NewLines {
				t.Errorf("file[%d].hunk[%d] range = -%d,%d +%d,%d, want -%d,%d +%d,%d",
					i, j, gh.OldStart, gh.OldLines, gh.NewStart, gh.NewLines,
					wh.OldStart, wh.OldLines, wh.NewStart, wh.NewLines)
			}
			if gh.Heading != wh.Heading {
				t.Errorf("file[%d].hunk[%d].Heading = %q, want %q", i, j, gh.Heading, wh.Heading)
			}
			if len(gh.Lines) != len(wh.Lines) {
				t.Fatalf("file[%d].hunk[%d] got %d lines, want %d lines", i, j, len(gh.Lines), len(wh.Lines))
			}
			for k, gl := range gh.Lines {
				wl := wh.Lines[k]
				if gl.Type != wl.Type {
					t.Errorf("file[%d].hunk[%d].line[%d].Type = %q, want %q", i, j, k, gl.Type, wl.Type)
				}
				if gl.Content != wl.Content {
					t.Errorf("file[%d].hunk[%d].line[%d].Content = %q, want %q", i, j, k, gl.Content, wl.Content)
				}
			}
		}
	}
}

func TestParseEmptyInput(t *testing.T) {
	_, err := Parse("")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Parse(\"\") error = %v, want ErrEmptyInput", err)
	}
}

func TestParseMetadata(t *testing.T) {
	hash := strings.Repeat("ab", 20)
	input := "From " + hash + " Mon Sep 17 00:00:00 2001\n" +
		"From: Jane Doe <jane@example.com>\n" +
		"Date: Mon, 1 Jan 2024 10:00:00 +0100\n" +
		"Subject: Fix bug\n" +
		"\n" +
		"---\n" +
		"diff --git a/foo.txt b/foo.txt\n" +
		"--- a/foo.txt\n" +
		"+++ b/foo.txt\n" +
		"@@ -1 +1 @@\n" +
		"-a\n" +
		"+b\n"

	result, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}

	md := result.Metadata
	if md.CommitHash != hash {
		t.Errorf("CommitHash = %q, want %q", md.CommitHash, hash)
	}
	if md.Author != "Jane Doe" {
		t.Errorf("Author = %q, want %q", md.Author, "Jane Doe")
	}
	if md.AuthorEmail != "jane@example.com" {
		t.Errorf("AuthorEmail = %q, want %q", md.AuthorEmail, "jane@example.com")
	}
	if md.Date != "Mon, 1 Jan 2024 10:00:00 +0100" {
		t.Errorf("Date = %q", md.Date)
	}
	if md.Message != "Fix bug" {
		t.Errorf("Message = %q, want %q", md.Message, "Fix bug")
	}
}

func TestParseMetadataSubjectContinuation(t *testing.T) {
	input := "Subject: Fix the frobnicator\n" +
		" so it frobs again\n" +
		"\n" +
		"ignored continuation\n" +
		"diff --git a/a b/a\n"

	result, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	want := "Fix the frobnicator so it frobs again"
	if result.Metadata.Message != want {
		t.Errorf("Message = %q, want %q", result.Metadata.Message, want)
	}
}

func TestParseMetadataAuthorWithoutEmail(t *testing.T) {
	result, err := Parse("From: Jane Doe\ndiff --git a/a b/a\n")
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	if result.Metadata.Author != "Jane Doe" {
		t.Errorf("Author = %q, want %q", result.Metadata.Author, "Jane Doe")
	}
	if result.Metadata.AuthorEmail != "" {
		t.Errorf("AuthorEmail = %q, want empty", result.Metadata.AuthorEmail)
	}
}

func TestParseMetadataRefsLastMatchWins(t *testing.T) {
	input := "commit 123 (HEAD -> main, origin/main)\n" +
		"another line (feature/x)\n" +
		"diff --git a/a b/a\n"

	result, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	refs := result.Metadata.Refs
	if len(refs) != 1 || refs[0] != "feature/x" {
		t.Errorf("Refs = %v, want [feature/x]", refs)
	}
}

func TestParseMetadataWindowBound(t *testing.T) {
	// A Subject: line past the 50-line window must not be found.
	input := strings.Repeat("filler\n", metadataScanLimit) +
		"Subject: too late\n" +
		"diff --git a/a b/a\n"

	result, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	if result.Metadata.Message != "" {
		t.Errorf("Message = %q, want empty (beyond scan window)", result.Metadata.Message)
	}
}

func TestParseMalformedHeadersWarn(t *testing.T) {
	input := `diff --git malformed-header
diff --git a/ok.txt b/ok.txt
--- a/ok.txt
+++ b/ok.txt
@@ not a real hunk header @@
@@ -1 +1 @@
-x
+y
`
	result, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	if len(result.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(result.Files))
	}
	if len(result.Files[0].Hunks) != 1 {
		t.Fatalf("got %d hunks, want 1", len(result.Files[0].Hunks))
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("got %d warnings, want 2: %v", len(result.Warnings), result.Warnings)
	}
	if result.Warnings[0].Line != 1 {
		t.Errorf("warning[0].Line = %d, want 1", result.Warnings[0].Line)
	}
	if result.Warnings[1].Line != 5 {
		t.Errorf("warning[1].Line = %d, want 5", result.Warnings[1].Line)
	}
}

func TestParseIdempotent(t *testing.T) {
	input := `diff --git a/foo.txt b/foo.txt
--- a/foo.txt
+++ b/foo.txt
@@ -1 +1 @@
-a
+b
`
	first, err := Parse(input)
	if err != nil {
		t.Fatalf("first Parse: %v", err)
	}
	second, err := Parse(input)
	if err != nil {
		t.Fatalf("second Parse: %v", err)
	}
	assertFiles(t, second.Files, first.Files)
	assertStats(t, second.Stats, first.Stats)
	if first.Raw != input || second.Raw != input {
		t.Errorf("Raw differs from input")
	}
}

func TestParseCountersMatchHunkLines(t *testing.T) {
	input := `diff --git a/a.go b/a.go
--- a/a.go
+++ b/a.go
@@ -1,4 +1,5 @@
 ctx
-del one
+add one
+add two
 ctx
@@ -10,2 +11,1 @@
-del two
 ctx
`
	result, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	f := result.Files[0]
	adds, dels := 0, 0
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdd:
				adds++
			case LineDel:
				dels++
			}
		}
	}
	if f.Additions != adds {
		t.Errorf("Additions = %d, want %d (counted from hunks)", f.Additions, adds)
	}
	if f.Deletions != dels {
		t.Errorf("Deletions = %d, want %d (counted from hunks)", f.Deletions, dels)
	}
}

func TestIsValidPatch(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"random text", "random text", false},
		{"empty", "", false},
		{"bare hunk header", "@@ -1 +1 @@", true},
		{"diff header", "diff --git a/x b/x", true},
		{"old file marker", "--- a/x", true},
		{"new file marker", "+++ b/x", true},
		{"marker mid-text", "hello\n@@ -1 +1 @@\nworld", true},
		{"marker not at line start", "x @@ -1 +1 @@", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidPatch(tt.input); got != tt.want {
				t.Errorf("IsValidPatch(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
