// Package sync implements the reverse path's write side: mapping diff
// results onto the declarative source and handler source, checking
// references, taking backups and applying patches under interactive or
// automatic approval.
package sync

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrPatchConflict marks a patch that cannot be applied to the current
// document: a missing path, an index out of range or a name collision.
var ErrPatchConflict = errors.New("sync: patch conflict")

// pathSegment is one step of a dotted patch path: a mapping key or a
// sequence index.
type pathSegment struct {
	key   string
	index int
	isKey bool
}

// parsePath splits a patch path into segments. Keys are separated by dots,
// indices are bracketed: `forms[0].elements[2].name`.
func parsePath(path string) ([]pathSegment, error) {
	var segs []pathSegment
	for _, part := range strings.Split(strings.TrimPrefix(path, "."), ".") {
		if part == "" {
			continue
		}
		key := part
		var indices []int
		for {
			open := strings.IndexByte(key, '[')
			if open < 0 {
				break
			}
			end := strings.IndexByte(key, ']')
			if end < open {
				return nil, fmt.Errorf("%w: bad path segment %q", ErrPatchConflict, part)
			}
			idx, err := strconv.Atoi(key[open+1 : end])
			if err != nil {
				return nil, fmt.Errorf("%w: bad index in %q", ErrPatchConflict, part)
			}
			indices = append(indices, idx)
			key = key[:open] + key[end+1:]
		}
		if key != "" {
			segs = append(segs, pathSegment{key: key, isKey: true})
		}
		for _, idx := range indices {
			segs = append(segs, pathSegment{index: idx})
		}
	}
	return segs, nil
}

// YAMLPatcher applies scalar and structural patches to a parsed document
// while keeping comments, anchors and quoting untouched everywhere the
// patch does not reach.
type YAMLPatcher struct{}

// NewYAMLPatcher returns a patcher.
func NewYAMLPatcher() *YAMLPatcher { return &YAMLPatcher{} }

func documentRoot(doc *yaml.Node) (*yaml.Node, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrPatchConflict)
	}
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, fmt.Errorf("%w: empty document", ErrPatchConflict)
		}
		return doc.Content[0], nil
	}
	return doc, nil
}

// resolve walks the segments and returns the addressed node.
func resolve(root *yaml.Node, segs []pathSegment) (*yaml.Node, error) {
	cur := root
	for _, seg := range segs {
		cur = deref(cur)
		if seg.isKey {
			if cur.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: %q is not a mapping", ErrPatchConflict, seg.key)
			}
			val := mappingValue(cur, seg.key)
			if val == nil {
				return nil, fmt.Errorf("%w: key %q not found", ErrPatchConflict, seg.key)
			}
			cur = val
		} else {
			if cur.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("%w: index [%d] into non-sequence", ErrPatchConflict, seg.index)
			}
			if seg.index < 0 || seg.index >= len(cur.Content) {
				return nil, fmt.Errorf("%w: index [%d] out of range", ErrPatchConflict, seg.index)
			}
			cur = cur.Content[seg.index]
		}
	}
	return deref(cur), nil
}

func deref(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// Set replaces the value at path. Mapping-onto-mapping merges key by key
// so untouched keys keep their comments; everything else is replaced in
// place while preserving the old node's style for scalars.
func (p *YAMLPatcher) Set(doc *yaml.Node, path string, value any) error {
	root, err := documentRoot(doc)
	if err != nil {
		return err
	}
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return fmt.Errorf("%w: empty path", ErrPatchConflict)
	}

	last := segs[len(segs)-1]
	parent, err := resolve(root, segs[:len(segs)-1])
	if err != nil {
		return err
	}

	encoded := &yaml.Node{}
	if err := encoded.Encode(value); err != nil {
		return fmt.Errorf("sync: encode patch value: %w", err)
	}

	if last.isKey {
		if parent.Kind != yaml.MappingNode {
			return fmt.Errorf("%w: %q is not a mapping", ErrPatchConflict, path)
		}
		existing := mappingValue(parent, last.key)
		if existing == nil {
			// New key: append with a plain style.
			parent.Content = append(parent.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: last.key},
				encoded)
			return nil
		}
		return overwrite(existing, encoded)
	}

	if parent.Kind != yaml.SequenceNode || last.index < 0 || last.index >= len(parent.Content) {
		return fmt.Errorf("%w: %q does not address a sequence item", ErrPatchConflict, path)
	}
	return overwrite(parent.Content[last.index], encoded)
}

// overwrite replaces dst's value with src's. When both are mappings the
// merge is key-wise: keys present in src are set, other keys survive with
// their comments.
func overwrite(dst, src *yaml.Node) error {
	dst = deref(dst)
	if dst.Kind == yaml.MappingNode && src.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(src.Content); i += 2 {
			key := src.Content[i].Value
			if existing := mappingValue(dst, key); existing != nil {
				if err := overwrite(existing, src.Content[i+1]); err != nil {
					return err
				}
				continue
			}
			dst.Content = append(dst.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: key},
				src.Content[i+1])
		}
		return nil
	}

	style := dst.Style
	comment := dst.LineComment
	head := dst.HeadComment
	foot := dst.FootComment
	*dst = *src
	if dst.Kind == yaml.ScalarNode {
		dst.Style = style
	}
	dst.LineComment = comment
	dst.HeadComment = head
	dst.FootComment = foot
	return nil
}

// Insert splices an element into the sequence at parentPath. A sequence
// item with the same name is a conflict.
func (p *YAMLPatcher) Insert(doc *yaml.Node, parentPath string, index int, element any) error {
	root, err := documentRoot(doc)
	if err != nil {
		return err
	}
	segs, err := parsePath(parentPath)
	if err != nil {
		return err
	}
	seq, err := resolve(root, segs)
	if err != nil {
		return err
	}
	if seq.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: %q is not a sequence", ErrPatchConflict, parentPath)
	}

	encoded := &yaml.Node{}
	if err := encoded.Encode(element); err != nil {
		return fmt.Errorf("sync: encode inserted element: %w", err)
	}
	if name := itemName(encoded); name != "" {
		for _, item := range seq.Content {
			if itemName(item) == name {
				return fmt.Errorf("%w: %q already contains %q", ErrPatchConflict, parentPath, name)
			}
		}
	}

	if index < 0 || index > len(seq.Content) {
		index = len(seq.Content)
	}
	seq.Content = append(seq.Content[:index],
		append([]*yaml.Node{encoded}, seq.Content[index:]...)...)
	return nil
}

// Delete removes the sequence item at parentPath whose name field equals
// name. Comments attached above the deleted item are hoisted onto the
// following sibling so they are not lost.
func (p *YAMLPatcher) Delete(doc *yaml.Node, parentPath, name string) error {
	root, err := documentRoot(doc)
	if err != nil {
		return err
	}
	segs, err := parsePath(parentPath)
	if err != nil {
		return err
	}
	seq, err := resolve(root, segs)
	if err != nil {
		return err
	}
	if seq.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: %q is not a sequence", ErrPatchConflict, parentPath)
	}

	for i, item := range seq.Content {
		if itemName(item) != name {
			continue
		}
		if head := item.HeadComment; head != "" && i+1 < len(seq.Content) {
			next := seq.Content[i+1]
			if next.HeadComment != "" {
				next.HeadComment = head + "\n" + next.HeadComment
			} else {
				next.HeadComment = head
			}
		}
		seq.Content = append(seq.Content[:i], seq.Content[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %q has no item named %q", ErrPatchConflict, parentPath, name)
}

// Move relocates the named item inside the sequence at parentPath.
func (p *YAMLPatcher) Move(doc *yaml.Node, parentPath, name string, toIndex int) error {
	root, err := documentRoot(doc)
	if err != nil {
		return err
	}
	segs, err := parsePath(parentPath)
	if err != nil {
		return err
	}
	seq, err := resolve(root, segs)
	if err != nil {
		return err
	}
	if seq.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: %q is not a sequence", ErrPatchConflict, parentPath)
	}
	from := -1
	for i, item := range seq.Content {
		if itemName(item) == name {
			from = i
			break
		}
	}
	if from < 0 {
		return fmt.Errorf("%w: %q has no item named %q", ErrPatchConflict, parentPath, name)
	}
	item := seq.Content[from]
	seq.Content = append(seq.Content[:from], seq.Content[from+1:]...)
	if toIndex < 0 || toIndex > len(seq.Content) {
		toIndex = len(seq.Content)
	}
	seq.Content = append(seq.Content[:toIndex],
		append([]*yaml.Node{item}, seq.Content[toIndex:]...)...)
	return nil
}

// itemName reads the name field of a mapping sequence item.
func itemName(item *yaml.Node) string {
	item = deref(item)
	if item.Kind != yaml.MappingNode {
		return ""
	}
	if v := mappingValue(item, "name"); v != nil {
		return v.Value
	}
	return ""
}
