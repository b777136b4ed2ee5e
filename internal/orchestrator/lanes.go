package orchestrator

import (
	"bonding-curve-indexer/internal/codec"
)

// unionFind is a disjoint-set forest over item indexes.
type unionFind struct {
	parent []int
	rank   []uint8
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]uint8, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// entityKeys returns the keys of every entity an item may touch.
func entityKeys(it *item) []string {
	var keys []string
	add := func(prefix, v string) {
		if v != "" {
			keys = append(keys, prefix+v)
		}
	}
	add("mint:", it.accounts[codec.AccMint])
	add("curve:", it.accounts[codec.AccBondingCurve])
	add("wallet:", it.wallet)
	return keys
}

// needsSerial reports whether any item mutates batch-wide state.
func needsSerial(items []*item) bool {
	for _, it := range items {
		if it.name == codec.IxInitialize || it.name == codec.IxSetParams {
			return true
		}
	}
	return false
}

// partition groups items into lanes: connected components of items sharing
// an entity key. Lanes keep stream order internally and are ordered by
// their first item.
func partition(items []*item) [][]*item {
	uf := newUnionFind(len(items))
	owner := make(map[string]int)
	for i, it := range items {
		for _, key := range entityKeys(it) {
			if j, ok := owner[key]; ok {
				uf.union(i, j)
			} else {
				owner[key] = i
			}
		}
	}

	var lanes [][]*item
	index := make(map[int]int)
	for i, it := range items {
		root := uf.find(i)
		l, ok := index[root]
		if !ok {
			l = len(lanes)
			index[root] = l
			lanes = append(lanes, nil)
		}
		lanes[l] = append(lanes[l], it)
	}
	return lanes
}
