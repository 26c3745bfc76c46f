package index

// InvertedIndex is the prefix tree of one field. The zero value is not
// usable; call NewInvertedIndex.
type InvertedIndex struct {
	root *Node
}

func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{root: newNode()}
}

// Root exposes the tree for serialization and inspection.
func (ii *InvertedIndex) Root() *Node {
	return ii.root
}

// AddToken records that token occurs in ref with the given tf, creating
// intermediate nodes as needed. Re-adding a (token, ref) pair overwrites tf
// without touching df.
func (ii *InvertedIndex) AddToken(token, ref string, tf float64) {
	if token == "" {
		return
	}
	node := ii.root
	for _, r := range token {
		child, ok := node.Children[r]
		if !ok {
			child = newNode()
			node.Children[r] = child
		}
		node = child
	}
	if _, seen := node.Docs[ref]; !seen {
		node.DocFreq++
	}
	node.Docs[ref] = Posting{TF: TermFrequency(tf)}
}

// Node returns the node reached by walking token, or nil.
func (ii *InvertedIndex) Node(token string) *Node {
	if token == "" {
		return nil
	}
	node := ii.root
	for _, r := range token {
		next, ok := node.Children[r]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}

// HasToken reports whether token is a path in the tree. Prefixes of indexed
// tokens count.
func (ii *InvertedIndex) HasToken(token string) bool {
	return ii.Node(token) != nil
}

// Docs returns the postings of token; callers must not modify the map.
func (ii *InvertedIndex) Docs(token string) map[string]Posting {
	if n := ii.Node(token); n != nil {
		return n.Docs
	}
	return nil
}

func (ii *InvertedIndex) DocFreq(token string) int {
	if n := ii.Node(token); n != nil {
		return n.DocFreq
	}
	return 0
}

func (ii *InvertedIndex) TermFrequency(token, ref string) float64 {
	if n := ii.Node(token); n != nil {
		return float64(n.Docs[ref].TF)
	}
	return 0
}

// ExpandToken lists every indexed token that starts with token: the token
// itself first when indexed, then depth-first by character.
func (ii *InvertedIndex) ExpandToken(token string) []string {
	start := ii.Node(token)
	if start == nil {
		return nil
	}
	var out []string
	var walk func(prefix string, n *Node)
	walk = func(prefix string, n *Node) {
		if n.DocFreq > 0 {
			out = append(out, prefix)
		}
		for _, r := range n.childKeys() {
			walk(prefix+string(r), n.Children[r])
		}
	}
	walk(token, start)
	return out
}

// Walk visits every indexed token in character order until fn returns false.
func (ii *InvertedIndex) Walk(fn func(token string, n *Node) bool) {
	var walk func(prefix string, n *Node) bool
	walk = func(prefix string, n *Node) bool {
		if n.DocFreq > 0 && !fn(prefix, n) {
			return false
		}
		for _, r := range n.childKeys() {
			if !walk(prefix+string(r), n.Children[r]) {
				return false
			}
		}
		return true
	}
	walk("", ii.root)
}

// TokenCount is the number of distinct indexed tokens.
func (ii *InvertedIndex) TokenCount() int {
	count := 0
	ii.Walk(func(string, *Node) bool {
		count++
		return true
	})
	return count
}
