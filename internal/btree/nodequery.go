package btree

import "github.com/apfsdev/btreeengine/internal/types"

// nodeQueryResult is the outcome of searching a single node for the
// greatest key less than or equal to a target.
type nodeQueryResult struct {
	// Index is the slot holding the greatest key <= target. Valid only
	// when Backtrack is false.
	Index int

	// Backtrack signals that this node cannot answer the query and the
	// caller should retry against an ancestor, one slot earlier than the
	// one it descended through.
	Backtrack bool
}

// queryNode finds, within a single node, the greatest key less than or
// equal to target. It signals backtrack when the node is empty, or when
// the node isn't the root and its first key already exceeds target — both
// mean the descent took the wrong child and must retry one level up.
// Ghost records (no value) are returned like any other match; the caller
// decides what a ghost means for its tree kind.
func queryNode(n *Node, target types.Key, kind types.TreeKind, keySize, valSize uint32) (nodeQueryResult, error) {
	count := int(n.KeyCount())
	if count == 0 {
		return nodeQueryResult{Backtrack: true}, nil
	}

	firstRaw, _, _, err := n.Entry(0, keySize, valSize)
	if err != nil {
		return nodeQueryResult{}, err
	}
	firstKey, err := DecodeKey(firstRaw, kind)
	if err != nil {
		return nodeQueryResult{}, err
	}
	if !n.IsRoot() && Compare(firstKey, target, kind) > 0 {
		return nodeQueryResult{Backtrack: true}, nil
	}

	lo, hi, best := 0, count-1, -1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		rawKey, _, _, err := n.Entry(mid, keySize, valSize)
		if err != nil {
			return nodeQueryResult{}, err
		}
		key, err := DecodeKey(rawKey, kind)
		if err != nil {
			return nodeQueryResult{}, err
		}
		if Compare(key, target, kind) <= 0 {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if best < 0 {
		return nodeQueryResult{Backtrack: true}, nil
	}
	return nodeQueryResult{Index: best}, nil
}
