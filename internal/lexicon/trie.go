package lexicon

// node is a single trie node keyed by rune.
type node struct {
	children map[rune]*node
	logFreq  int
	tag      string
	term     bool
}

// trie is a rune trie used for maximum-match scanning.
// Two tries are kept per lexicon, one over terms as written and one
// over reversed terms, so both scan directions are prefix walks.
type trie struct {
	root *node
}

func newTrie() *trie {
	return &trie{root: &node{}}
}

// insert adds a term. When the term already exists the higher
// frequency wins, so user dictionaries can only promote terms.
func (t *trie) insert(rs []rune, logFreq int, tag string) {
	cur := t.root
	for _, r := range rs {
		if cur.children == nil {
			cur.children = make(map[rune]*node)
		}
		next, ok := cur.children[r]
		if !ok {
			next = &node{}
			cur.children[r] = next
		}
		cur = next
	}
	if cur.term && cur.logFreq >= logFreq {
		return
	}
	cur.term = true
	cur.logFreq = logFreq
	cur.tag = tag
}

// get returns the stored entry for an exact term.
func (t *trie) get(rs []rune) (int, string, bool) {
	cur := t.root
	for _, r := range rs {
		next, ok := cur.children[r]
		if !ok {
			return 0, "", false
		}
		cur = next
	}
	if !cur.term {
		return 0, "", false
	}
	return cur.logFreq, cur.tag, true
}

// hasPrefix reports whether any stored term starts with rs.
func (t *trie) hasPrefix(rs []rune) bool {
	cur := t.root
	for _, r := range rs {
		next, ok := cur.children[r]
		if !ok {
			return false
		}
		cur = next
	}
	return true
}
