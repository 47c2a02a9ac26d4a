package btree

import (
	"encoding/binary"
	"fmt"
	"log"

	"github.com/apfsdev/btreeengine/internal/apfserr"
	"github.com/apfsdev/btreeengine/internal/types"
)

// maxDepth bounds a descent so a corrupted child pointer cycle becomes an
// error instead of a hang. Legitimate APFS trees are far shallower.
const maxDepth = 12

// NodeLoader resolves a child's object identifier to its parsed node. The
// object map's own tree reads childOID directly as a block address; an
// object-mapped tree (the file-system catalog, the free queue) must first
// translate childOID through the object map, which is why this is an
// interface rather than a concrete block read — internal/omap supplies both
// implementations (PhysicalLoader and VirtualLoader).
type NodeLoader interface {
	Load(childOID types.OidT) (*Node, error)
}

// Result is a single match produced by a Query.
type Result struct {
	Key   types.Key
	Value []byte
	Ghost bool
	Leaf  *Node
	Index int
}

// frame records one step of the descent: the node queried and the index
// of the child taken from it, so a backtrack can retry the previous
// sibling without re-running the binary search.
type frame struct {
	node  *Node
	index int
}

// Query holds the state of one descent. Go's GC reclaims the parent chain
// once Release returns, but keeping the explicit call site makes room for
// buffer bookkeeping (internal/blockdev.Buffer release) to hook into the
// same lifecycle.
type Query struct {
	loader  NodeLoader
	kind    types.TreeKind
	keySize uint32
	valSize uint32
	chain   []frame

	// Multi-record scan state: the target every yielded key must still
	// match, the leaf and slot the last match came from, and whether the
	// scan has run off the matching range.
	multiple bool
	target   types.Key
	leaf     *Node
	index    int
	done     bool
}

// NewQuery builds a Query against a tree whose root carries info (only a
// root node does; pass the root's Info()).
func NewQuery(loader NodeLoader, kind types.TreeKind, info *types.BtreeInfoT) *Query {
	return &Query{
		loader:  loader,
		kind:    kind,
		keySize: info.BtFixed.BtKeySize,
		valSize: info.BtFixed.BtValSize,
	}
}

// NewMultiQuery builds a Query that yields every record whose key matches
// the target under the tree's comparator, not just the single floor entry:
// Run returns the greatest match and each Next call steps to the previous
// one, crossing sibling boundaries through the retained parent chain. Used
// with a wildcard target (a directory-entry key with no name, a free-queue
// key with address zero) it enumerates a whole matching range.
func NewMultiQuery(loader NodeLoader, kind types.TreeKind, info *types.BtreeInfoT) *Query {
	q := NewQuery(loader, kind, info)
	q.multiple = true
	return q
}

// Release discards the parent chain built up by Run.
func (q *Query) Release() {
	q.chain = nil
	q.leaf = nil
	q.done = true
}

// Run descends from root looking for the greatest key less than or equal
// to target: an exact catalog/omap match, or (for range-style callers) the
// predecessor entry. It returns apfserr.NotFound once backtracking runs
// off the top of the tree.
func (q *Query) Run(root *Node, target types.Key) (Result, error) {
	node := root
	q.chain = q.chain[:0]
	q.target = target
	q.leaf = nil
	q.done = false

	for {
		res, err := queryNode(node, target, q.kind, q.keySize, q.valSize)
		if err != nil {
			return Result{}, err
		}

		if res.Backtrack {
			var ok bool
			node, ok, err = q.backtrack()
			if err != nil {
				return Result{}, err
			}
			if !ok {
				return Result{}, apfserr.NotFound
			}
			continue
		}

		if node.IsLeaf() {
			rawKey, rawVal, ghost, err := node.Entry(res.Index, q.keySize, q.valSize)
			if err != nil {
				return Result{}, err
			}
			key, err := DecodeKey(rawKey, q.kind)
			if err != nil {
				return Result{}, err
			}
			if q.multiple {
				// The floor entry may sort below every match; a scan only
				// starts once the greatest key <= target actually matches.
				if Compare(key, target, q.kind) != 0 {
					q.done = true
					return Result{}, apfserr.NotFound
				}
				q.leaf, q.index = node, res.Index
			}
			return Result{Key: key, Value: rawVal, Ghost: ghost, Leaf: node, Index: res.Index}, nil
		}

		// len(q.chain) is the net descent depth: it grows by exactly one
		// per successful descend below and shrinks when backtrack pops
		// frames to ascend, so a tree that backtracks across siblings
		// without ever going deeper never spuriously trips this guard.
		if len(q.chain) >= maxDepth {
			return Result{}, fmt.Errorf("%w: btree descent exceeded depth %d", apfserr.Corrupted, maxDepth)
		}

		child, err := q.descend(node, res.Index)
		if err != nil {
			return Result{}, err
		}
		node = child
	}
}

// descend reads the child referenced by node's entry at index (nonleaf
// values are always a fixed 8-byte child object identifier) and pushes a
// frame recording how we got there.
func (q *Query) descend(node *Node, index int) (*Node, error) {
	_, rawVal, _, err := node.Entry(index, q.keySize, 8)
	if err != nil {
		return nil, err
	}
	if len(rawVal) != 8 {
		log.Printf("Error: btree node %d record %d: nonleaf value is %d bytes, not an 8-byte object identifier", node.OID(), index, len(rawVal))
		return nil, fmt.Errorf("%w: node %d record %d: nonleaf value is not a bare object identifier", apfserr.Corrupted, node.OID(), index)
	}
	childOID := types.OidT(binary.LittleEndian.Uint64(rawVal))

	child, err := q.loader.Load(childOID)
	if err != nil {
		return nil, err
	}
	if child.OID() != childOID {
		log.Printf("Warning: btree child object id mismatch: parent record names %d, loaded node reports %d", childOID, child.OID())
	}

	q.chain = append(q.chain, frame{node: node, index: index})
	return child, nil
}

// backtrack pops frames until it finds one where the previous sibling can
// be tried, descending into that sibling. ok is false once the chain is
// exhausted, meaning the whole tree has no matching record.
func (q *Query) backtrack() (*Node, bool, error) {
	for len(q.chain) > 0 {
		top := q.chain[len(q.chain)-1]
		q.chain = q.chain[:len(q.chain)-1]

		if top.index == 0 {
			// No earlier sibling in this parent either; keep unwinding.
			continue
		}

		child, err := q.descend(top.node, top.index-1)
		if err != nil {
			return nil, false, err
		}
		return child, true, nil
	}
	return nil, false, nil
}

// Next steps a multi-record query to the record preceding the last one
// yielded, recrossing sibling boundaries through the parent chain when the
// current leaf is exhausted. It returns apfserr.NotFound once the next
// record no longer matches the target, or once the scan runs off the left
// edge of the tree.
func (q *Query) Next() (Result, error) {
	if !q.multiple {
		return Result{}, fmt.Errorf("%w: Next called on a single-record query", apfserr.Corrupted)
	}
	if q.done || q.leaf == nil {
		return Result{}, apfserr.NotFound
	}

	node := q.leaf
	index := q.index - 1
	for index < 0 {
		sibling, ok, err := q.backtrack()
		if err != nil {
			return Result{}, err
		}
		if !ok {
			q.done = true
			return Result{}, apfserr.NotFound
		}
		node = sibling
		// The previous sibling's match, if any, is its rightmost record;
		// walk the rightmost edge down to its leaf.
		for !node.IsLeaf() {
			if len(q.chain) >= maxDepth {
				return Result{}, fmt.Errorf("%w: btree descent exceeded depth %d", apfserr.Corrupted, maxDepth)
			}
			count := int(node.KeyCount())
			if count == 0 {
				return Result{}, fmt.Errorf("%w: empty nonleaf node in multi-record scan", apfserr.Corrupted)
			}
			node, err = q.descend(node, count-1)
			if err != nil {
				return Result{}, err
			}
		}
		index = int(node.KeyCount()) - 1
	}

	rawKey, rawVal, ghost, err := node.Entry(index, q.keySize, q.valSize)
	if err != nil {
		return Result{}, err
	}
	key, err := DecodeKey(rawKey, q.kind)
	if err != nil {
		return Result{}, err
	}
	if Compare(key, q.target, q.kind) != 0 {
		q.done = true
		return Result{}, apfserr.NotFound
	}

	q.leaf, q.index = node, index
	return Result{Key: key, Value: rawVal, Ghost: ghost, Leaf: node, Index: index}, nil
}
