package patch

import "path"

// RootDir is the grouping key for files without a directory component.
const RootDir = "."

// EffectivePath returns the path a file should be displayed and grouped
// under: the new path, unless the file was deleted.
func EffectivePath(f FileDiff) string {
	if f.NewPath == "/dev/null" {
		return f.OldPath
	}
	return f.NewPath
}

// GroupFilesByDirectory groups files by the directory portion of their
// effective path. Per-directory relative order matches the input order.
func GroupFilesByDirectory(files []FileDiff) map[string][]FileDiff {
	groups := make(map[string][]FileDiff)
	for _, f := range files {
		dir := path.Dir(EffectivePath(f))
		groups[dir] = append(groups[dir], f)
	}
	return groups
}
