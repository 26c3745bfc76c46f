package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// TermFrequency is the square root of a term's raw count in one field of one
// document. It is always written with a fractional part (1.0, not 1) to stay
// byte-compatible with indexes produced by other elasticlunr writers.
type TermFrequency float64

func (tf TermFrequency) MarshalJSON() ([]byte, error) {
	f := float64(tf)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("term frequency %v is not finite", f)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !bytes.ContainsAny([]byte(s), ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

// Posting is the per-document entry of a trie node.
type Posting struct {
	TF TermFrequency `json:"tf"`
}

// Node is one character step of a field's prefix tree. DocFreq and Docs are
// only populated where an indexed token ends.
type Node struct {
	DocFreq  int
	Docs     map[string]Posting
	Children map[rune]*Node
}

func newNode() *Node {
	return &Node{
		Docs:     make(map[string]Posting),
		Children: make(map[rune]*Node),
	}
}

// childKeys returns the children in a stable order.
func (n *Node) childKeys() []rune {
	keys := make([]rune, 0, len(n.Children))
	for r := range n.Children {
		keys = append(keys, r)
	}
	slices.Sort(keys)
	return keys
}

// MarshalJSON writes children, "df" and "docs" as one object with all keys
// in byte order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type member struct {
	key   string
	child *Node
}

func (n *Node) encode(buf *bytes.Buffer) error {
	members := make([]member, 0, len(n.Children)+2)
	for r, child := range n.Children {
		members = append(members, member{key: string(r), child: child})
	}
	members = append(members, member{key: "df"}, member{key: "docs"})
	slices.SortFunc(members, func(a, b member) int {
		return bytes.Compare([]byte(a.key), []byte(b.key))
	})

	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, m.key)
		buf.WriteByte(':')
		switch {
		case m.child != nil:
			if err := m.child.encode(buf); err != nil {
				return err
			}
		case m.key == "df":
			buf.WriteString(strconv.Itoa(n.DocFreq))
		default:
			if err := n.encodeDocs(buf); err != nil {
				return err
			}
		}
	}
	buf.WriteByte('}')
	return nil
}

func (n *Node) encodeDocs(buf *bytes.Buffer) error {
	refs := make([]string, 0, len(n.Docs))
	for ref := range n.Docs {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	buf.WriteByte('{')
	for i, ref := range refs {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, ref)
		buf.WriteString(`:{"tf":`)
		tf, err := n.Docs[ref].TF.MarshalJSON()
		if err != nil {
			return fmt.Errorf("doc %s: %w", ref, err)
		}
		buf.Write(tf)
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encode appends a newline that must not end up inside the object.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: trie node: %v", apperrors.ErrMalformedIndex, err)
	}
	*n = *newNode()
	for key, value := range raw {
		switch key {
		case "df":
			if err := json.Unmarshal(value, &n.DocFreq); err != nil {
				return fmt.Errorf("%w: df: %v", apperrors.ErrMalformedIndex, err)
			}
		case "docs":
			if err := json.Unmarshal(value, &n.Docs); err != nil {
				return fmt.Errorf("%w: docs: %v", apperrors.ErrMalformedIndex, err)
			}
		default:
			r, size := utf8.DecodeRuneInString(key)
			if r == utf8.RuneError || size != len(key) {
				return fmt.Errorf("%w: trie key %q is not a single character", apperrors.ErrMalformedIndex, key)
			}
			child := newNode()
			if err := child.UnmarshalJSON(value); err != nil {
				return fmt.Errorf("under %q: %w", key, err)
			}
			n.Children[r] = child
		}
	}
	if n.DocFreq != len(n.Docs) {
		return fmt.Errorf("%w: df %d does not match %d postings", apperrors.ErrMalformedIndex, n.DocFreq, len(n.Docs))
	}
	for ref, p := range n.Docs {
		if !(p.TF > 0) {
			return fmt.Errorf("%w: doc %s has non-positive tf", apperrors.ErrMalformedIndex, ref)
		}
	}
	return nil
}
