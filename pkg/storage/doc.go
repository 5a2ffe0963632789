// Package storage manages the on-disk media tree.
//
// Layout:
//
//	<root>/<owner>/<hash><ext>
//	<root>/<owner>/<contextID>_<hash><ext>
//
// Files are written atomically (temp file plus rename), so a reader never sees
// a partial image and two workers writing the same content-addressed name
// cannot corrupt each other. Exists consults an in-memory cache before the
// filesystem, which makes repeat lookups within one run cheap.
package storage
