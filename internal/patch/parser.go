// Package patch parses git unified-diff text into a structured document model.
package patch

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyInput is returned by Parse when there is no text to parse.
var ErrEmptyInput = errors.New("patch text is empty")

// metadataScanLimit bounds the header scan. Mailbox-format headers always
// precede the first "diff --git" line, so scanning further buys nothing.
const metadataScanLimit = 50

var (
	fileHeaderRe = regexp.MustCompile(`^diff --git a/(.+?) b/(.+)$`)
	hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)
	commitHashRe = regexp.MustCompile(`^From ([0-9a-f]{40})\b`)
	authorRe     = regexp.MustCompile(`^From: (.+?) <(.+?)>$`)
	refsRe       = regexp.MustCompile(`\(([^()]+)\)\s*$`)
	validPatchRe = regexp.MustCompile(`(?m)^(diff --git|---|\+\+\+|@@ )`)
)

// Parse parses patch text into a ParsedPatch. The only failure is empty
// input; malformed sections inside the text are degraded, not fatal, and
// surface as Warnings on the result.
func Parse(text string) (*ParsedPatch, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	lines := strings.Split(text, "\n")
	p := &ParsedPatch{
		Metadata: parseMetadata(lines),
		Raw:      text,
	}

	var (
		file *FileDiff
		hunk *Hunk
	)

	closeHunk := func() {
		if hunk != nil && file != nil {
			file.Hunks = append(file.Hunks, *hunk)
		}
		hunk = nil
	}
	closeFile := func() {
		closeHunk()
		if file != nil {
			p.Files = append(p.Files, *file)
		}
		file = nil
	}

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			m := fileHeaderRe.FindStringSubmatch(line)
			if m == nil {
				// Leniency: keep the previous file current, but record
				// the degradation so callers can detect it.
				p.warn(i+1, "diff --git line without a/ b/ pair")
				continue
			}
			closeFile()
			file = &FileDiff{
				OldPath: m[1],
				NewPath: m[2],
				Type:    TypeModified,
			}

		case strings.HasPrefix(line, "new file mode"):
			if file != nil {
				file.OldPath = "/dev/null"
				file.Type = TypeAdded
			}

		case strings.HasPrefix(line, "deleted file mode"):
			if file != nil {
				file.NewPath = "/dev/null"
				file.Type = TypeDeleted
			}

		case strings.HasPrefix(line, "rename from "):
			if file != nil {
				file.Type = TypeRenamed
			}

		case strings.HasPrefix(line, "Binary files ") && strings.HasSuffix(line, " differ"):
			if file != nil {
				// Binary files carry no line content; drop anything a
				// stray hunk header may already have produced.
				file.IsBinary = true
				file.Hunks = nil
				file.Additions = 0
				file.Deletions = 0
				hunk = nil
			}

		case strings.HasPrefix(line, "@@"):
			if file == nil || file.IsBinary {
				continue
			}
			closeHunk()
			m := hunkHeaderRe.FindStringSubmatch(line)
			if m == nil {
				p.warn(i+1, "hunk header does not match @@ -old +new @@ grammar")
				continue
			}
			hunk = &Hunk{
				OldStart: atoiOr(m[1], 1),
				OldLines: atoiOr(m[2], 1),
				NewStart: atoiOr(m[3], 1),
				NewLines: atoiOr(m[4], 1),
				Heading:  strings.TrimSpace(m[5]),
			}

		default:
			if file == nil || file.IsBinary || hunk == nil {
				continue
			}
			switch {
			case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
				hunk.Lines = append(hunk.Lines, HunkLine{Type: LineAdd, Content: line[1:]})
				file.Additions++
			case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
				hunk.Lines = append(hunk.Lines, HunkLine{Type: LineDel, Content: line[1:]})
				file.Deletions++
			case strings.HasPrefix(line, " ") && (len(hunk.Lines) > 0 || strings.TrimSpace(line) != ""):
				// The guard keeps stray blank lines ahead of the first
				// real content line out of the hunk.
				hunk.Lines = append(hunk.Lines, HunkLine{Type: LineContext, Content: line[1:]})
			}
			// Anything else ("\ No newline at end of file", empty trailing
			// lines) is silently skipped.
		}
	}
	closeFile()

	for _, f := range p.Files {
		p.Stats.Additions += f.Additions
		p.Stats.Deletions += f.Deletions
	}
	p.Stats.FilesChanged = len(p.Files)

	return p, nil
}

// parseMetadata scans the first metadataScanLimit lines for mailbox-format
// commit headers. The scan is independent of file parsing and consumes
// nothing.
func parseMetadata(lines []string) CommitMetadata {
	var md CommitMetadata

	limit := len(lines)
	if limit > metadataScanLimit {
		limit = metadataScanLimit
	}

	for i := 0; i < limit; i++ {
		line := lines[i]

		if m := commitHashRe.FindStringSubmatch(line); m != nil {
			md.CommitHash = m[1]
			continue
		}

		if strings.HasPrefix(line, "From: ") {
			if m := authorRe.FindStringSubmatch(line); m != nil {
				md.Author = m[1]
				md.AuthorEmail = m[2]
			} else {
				md.Author = strings.TrimSpace(strings.TrimPrefix(line, "From: "))
			}
			continue
		}

		if strings.HasPrefix(line, "Date: ") {
			md.Date = strings.TrimSpace(strings.TrimPrefix(line, "Date: "))
			continue
		}

		if strings.HasPrefix(line, "Subject: ") {
			var parts []string
			parts = append(parts, strings.TrimSpace(strings.TrimPrefix(line, "Subject: ")))
			// The subject may wrap onto continuation lines; accumulation
			// stops at the first blank line or a line starting with ---.
			for j := i + 1; j < limit; j++ {
				next := lines[j]
				if next == "" || strings.HasPrefix(next, "---") {
					break
				}
				parts = append(parts, strings.TrimSpace(next))
			}
			md.Message = strings.TrimSpace(strings.Join(parts, " "))
			continue
		}

		// Ref decorations like "(HEAD -> main, origin/main)". Last match
		// in the scanned window wins.
		if m := refsRe.FindStringSubmatch(strings.TrimRight(line, " ")); m != nil {
			var refs []string
			for _, r := range strings.Split(m[1], ",") {
				if r = strings.TrimSpace(r); r != "" {
					refs = append(refs, r)
				}
			}
			if len(refs) > 0 {
				md.Refs = refs
			}
		}
	}

	return md
}

func (p *ParsedPatch) warn(line int, reason string) {
	p.Warnings = append(p.Warnings, Warning{Line: line, Reason: reason})
}

// atoiOr parses s, returning def when s is empty. Git omits a hunk count
// component when it is exactly 1.
func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// IsValidPatch reports whether text looks like a unified diff. It is a
// cheap heuristic gate for fast-failing obviously wrong input, not a
// grammar check.
func IsValidPatch(text string) bool {
	return validPatchRe.MatchString(text)
}
