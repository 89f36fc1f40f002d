// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package kdtree implements the bucketed (x, y, heading) histogram
// used both as the occupancy histogram for KLD-sampling and as a
// single-linkage cluster index over the sample population.
//
// The tree splits on one pose axis at a time, keyed by the integer
// bucket a pose falls into. It is allocated once from a single
// fixed-capacity node pool addressed by index rather than pointer, so
// Clear is O(1): it only resets the allocation counter, never the
// backing array.
package kdtree

import (
	"math"

	"github.com/js-arias/amcl/pose"
)

// Fixed cell sizes for the bucket key, matching the source.
const (
	cellX     = 0.5        // meters
	cellY     = 0.5        // meters
	cellTheta = math.Pi / 9 // ~10 degrees
)

// NoCluster is the sentinel returned by GetCluster when a pose has no
// matching leaf.
const NoCluster = -1

// key is the 3-vector bucket a pose quantizes to.
type key [3]int

func bucketKey(p pose.Pose) key {
	return key{
		int(math.Floor(p.X / cellX)),
		int(math.Floor(p.Y / cellY)),
		int(math.Floor(pose.Wrap(p.Heading) / cellTheta)),
	}
}

// node is either a leaf (an occupied bucket) or a split on one axis
// of the bucket key.
type node struct {
	parent   int
	children [2]int

	leaf    bool
	key     key
	weight  float64
	cluster int

	pivotDim int
	pivotVal float64
}

// Tree is a bucketed pose histogram and cluster index, backed by a
// single contiguous node pool.
type Tree struct {
	nodes     []node
	free      int
	root      int
	leafCount int

	clusterCount int
}

// New allocates a tree with the given node pool capacity. The source
// sizes this at 3x the maximum sample count, which bounds the number
// of splits a full sample set can ever force.
func New(poolSize int) *Tree {
	return &Tree{
		nodes: make([]node, poolSize),
		root:  -1,
	}
}

// Clear resets the tree to empty without freeing the node pool.
func (t *Tree) Clear() {
	t.free = 0
	t.root = -1
	t.leafCount = 0
	t.clusterCount = 0
}

func (t *Tree) alloc() int {
	if t.free >= len(t.nodes) {
		return -1
	}
	idx := t.free
	t.free++
	t.nodes[idx] = node{children: [2]int{-1, -1}, cluster: NoCluster}
	return idx
}

// Insert adds a weighted pose to the histogram: if its bucket is
// already occupied, weight is added to the existing leaf; otherwise a
// new leaf is created, splitting its parent along the axis of
// maximum spread between the new and the displaced key. Insert fails
// silently if the node pool is exhausted.
func (t *Tree) Insert(p pose.Pose, weight float64) {
	k := bucketKey(p)
	t.root = t.insert(t.root, k, weight)
}

func (t *Tree) insert(idx int, k key, weight float64) int {
	if idx == -1 {
		ni := t.alloc()
		if ni == -1 {
			return -1
		}
		n := &t.nodes[ni]
		n.leaf = true
		n.key = k
		n.weight = weight
		t.leafCount++
		return ni
	}

	n := &t.nodes[idx]
	if n.leaf {
		if n.key == k {
			n.weight += weight
			return idx
		}

		maxSplit := -1
		dim := 0
		for i := 0; i < 3; i++ {
			d := k[i] - n.key[i]
			if d < 0 {
				d = -d
			}
			if d > maxSplit {
				maxSplit = d
				dim = i
			}
		}

		oldKey, oldWeight := n.key, n.weight
		n.leaf = false
		n.pivotDim = dim
		n.pivotVal = float64(k[dim]+oldKey[dim]) / 2
		n.weight = 0
		n.cluster = NoCluster
		t.leafCount--

		if float64(k[dim]) < n.pivotVal {
			n.children[0] = t.insert(-1, k, weight)
			n.children[1] = t.insert(-1, oldKey, oldWeight)
		} else {
			n.children[0] = t.insert(-1, oldKey, oldWeight)
			n.children[1] = t.insert(-1, k, weight)
		}
		return idx
	}

	if float64(k[n.pivotDim]) < n.pivotVal {
		n.children[0] = t.insert(n.children[0], k, weight)
	} else {
		n.children[1] = t.insert(n.children[1], k, weight)
	}
	return idx
}

// LeafCount returns the number of occupied buckets, the k used by the
// KLD resample-limit formula.
func (t *Tree) LeafCount() int { return t.leafCount }

// ClusterCount returns the number of clusters found by the last call
// to Cluster.
func (t *Tree) ClusterCount() int { return t.clusterCount }

// Cluster assigns a cluster label to every leaf, such that two leaves
// share a label iff they are connected through a chain of leaves
// whose bucket keys differ by at most 1 on every axis (a 26-neighbor
// flood fill). It returns the number of clusters found.
func (t *Tree) Cluster() int {
	var leaves []int
	t.collectLeaves(t.root, &leaves)

	byKey := make(map[key]int, len(leaves))
	for _, idx := range leaves {
		byKey[t.nodes[idx].key] = idx
		t.nodes[idx].cluster = NoCluster
	}

	label := 0
	var stack []int
	for _, start := range leaves {
		if t.nodes[start].cluster != NoCluster {
			continue
		}
		t.nodes[start].cluster = label
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			ck := t.nodes[cur].key

			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					for dh := -1; dh <= 1; dh++ {
						if dx == 0 && dy == 0 && dh == 0 {
							continue
						}
						nk := key{ck[0] + dx, ck[1] + dy, ck[2] + dh}
						ni, ok := byKey[nk]
						if !ok || t.nodes[ni].cluster != NoCluster {
							continue
						}
						t.nodes[ni].cluster = label
						stack = append(stack, ni)
					}
				}
			}
		}
		label++
	}

	t.clusterCount = label
	return label
}

func (t *Tree) collectLeaves(idx int, out *[]int) {
	if idx == -1 {
		return
	}
	n := &t.nodes[idx]
	if n.leaf {
		*out = append(*out, idx)
		return
	}
	t.collectLeaves(n.children[0], out)
	t.collectLeaves(n.children[1], out)
}

// GetCluster returns the cluster label of the leaf containing p, or
// NoCluster if the pose's bucket has no leaf.
func (t *Tree) GetCluster(p pose.Pose) int {
	k := bucketKey(p)
	idx := t.root
	for idx != -1 {
		n := &t.nodes[idx]
		if n.leaf {
			if n.key == k {
				return n.cluster
			}
			return NoCluster
		}
		if float64(k[n.pivotDim]) < n.pivotVal {
			idx = n.children[0]
		} else {
			idx = n.children[1]
		}
	}
	return NoCluster
}
