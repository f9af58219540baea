// Package tensortree implements the LBNL/Shirley-Chiu tensor-tree
// measured-BSDF loader: a brace-nested scattering-data tokenizer, a
// depth-first linearizer, and the binary export format.
package tensortree

import (
	"strconv"

	"github.com/pkg/errors"
)

const prefix = "tensortree: "

func newTreeErr(reason string) error { return errors.New(prefix + reason) }

type tokenKind int

const (
	tokOpen tokenKind = iota
	tokClose
	tokNumber
)

type token struct {
	kind tokenKind
	num  float32
}

// tokenize splits brace-nested scattering data into a flat token
// stream: "{" and "}" are their own tokens, everything else is parsed
// as a float32.
func tokenize(s string) ([]token, error) {
	var toks []token
	start := -1
	flush := func(end int) error {
		if start < 0 {
			return nil
		}
		f, err := strconv.ParseFloat(s[start:end], 32)
		if err != nil {
			return errors.Wrap(err, prefix+"malformed number")
		}
		toks = append(toks, token{kind: tokNumber, num: float32(f)})
		start = -1
		return nil
	}
	for i, r := range s {
		switch {
		case r == '{':
			if err := flush(i); err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokOpen})
		case r == '}':
			if err := flush(i); err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokClose})
		case r == ' ' || r == ',' || r == '\t' || r == '\n' || r == '\r':
			if err := flush(i); err != nil {
				return nil, err
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}
	return toks, nil
}

type tokenStream struct {
	toks []token
	pos  int
}

func (ts *tokenStream) peek() (token, bool) {
	if ts.pos >= len(ts.toks) {
		return token{}, false
	}
	return ts.toks[ts.pos], true
}

func (ts *tokenStream) next() (token, bool) {
	t, ok := ts.peek()
	if ok {
		ts.pos++
	}
	return t, ok
}

// rawNode is the parsed, un-linearized tree: either a leaf (1 or
// fanout values) or an internal node with exactly fanout children.
type rawNode struct {
	values   []float32
	children []*rawNode
}

func (n *rawNode) isLeaf() bool { return n.children == nil }

// parseRoot parses the whole scattering-data string for a tensor tree
// of the given fanout (8 for TensorTree3, 16 for TensorTree4). The
// root must have exactly one child, which becomes the tree's
// effective root (§4.B: "we eat it").
func parseRoot(s string, fanout int) (*rawNode, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	ts := &tokenStream{toks: toks}
	if open, ok := ts.next(); !ok || open.kind != tokOpen {
		return nil, newTreeErr("expected '{'")
	}
	root, err := parseBlock(ts, fanout)
	if err != nil {
		return nil, err
	}
	if _, err := expectClose(ts); err != nil {
		return nil, newTreeErr("root must have exactly one child")
	}
	if _, more := ts.peek(); more {
		return nil, newTreeErr("trailing tokens after root block")
	}
	return root, nil
}

// parseBlock consumes one "{ ... }" group. Its content is either
// nested "{...}" children (exactly fanout of them) or floats (exactly
// 1 or fanout of them); any other count is a hard fan-out error.
func parseBlock(ts *tokenStream, fanout int) (*rawNode, error) {
	open, ok := ts.next()
	if !ok || open.kind != tokOpen {
		return nil, newTreeErr("expected '{'")
	}

	peeked, ok := ts.peek()
	if !ok {
		return nil, newTreeErr("unexpected end of input inside block")
	}

	if peeked.kind == tokOpen {
		children := make([]*rawNode, 0, fanout)
		for {
			next, ok := ts.peek()
			if !ok {
				return nil, newTreeErr("unexpected end of input, unclosed block")
			}
			if next.kind == tokClose {
				break
			}
			child, err := parseBlock(ts, fanout)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if _, err := expectClose(ts); err != nil {
			return nil, err
		}
		if len(children) != fanout {
			return nil, newTreeErr("internal node fan-out must equal " + strconv.Itoa(fanout))
		}
		return &rawNode{children: children}, nil
	}

	var values []float32
	for {
		next, ok := ts.peek()
		if !ok {
			return nil, newTreeErr("unexpected end of input, unclosed block")
		}
		if next.kind == tokClose {
			break
		}
		if next.kind != tokNumber {
			return nil, newTreeErr("expected a number in leaf block")
		}
		ts.next()
		values = append(values, next.num)
	}
	if _, err := expectClose(ts); err != nil {
		return nil, err
	}
	if len(values) != 1 && len(values) != fanout {
		return nil, newTreeErr("leaf value count must be 1 or " + strconv.Itoa(fanout))
	}
	return &rawNode{values: values}, nil
}

func expectClose(ts *tokenStream) (token, error) {
	t, ok := ts.next()
	if !ok || t.kind != tokClose {
		return token{}, newTreeErr("expected '}'")
	}
	return t, nil
}
