// Package narrative loads the narrative plan: the ordered list of markdown
// passages to inject and the original cell index each one must precede. Plans
// come from a YAML file whose cells are declared inline or point at markdown
// files, optionally extended by a directory of markdown fragments that carry
// their target index in YAML frontmatter.
//
// Declaration order matters. Inline cells come first in file order, then
// fragments sorted by path. Passages that share a target index are inserted in
// that order.
package narrative
