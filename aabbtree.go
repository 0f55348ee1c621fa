package plume

import (
	"container/heap"
	"fmt"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultFatMargin is added around every leaf so small movements keep the tree untouched
const DefaultFatMargin = 0.05

// TreeIndex addresses a node in the tree arena
type TreeIndex int32

const NullIndex TreeIndex = -1

type treeNode struct {
	aabb actor.AABB
	// 0 for leaves, -1 for free nodes
	height int

	parent TreeIndex
	// next free node, only meaningful while the node is free
	next TreeIndex

	left, right TreeIndex

	tag   ColliderTag
	layer CollisionLayer
}

func (n *treeNode) isLeaf() bool {
	return n.right == NullIndex
}

// TreeUpdate is one leaf refit of DynamicAABBTree.UpdateBatch
type TreeUpdate struct {
	Tag   ColliderTag
	Layer CollisionLayer
	AABB  actor.AABB
}

// ShapeCandidates holds query results split by collider shape
type ShapeCandidates struct {
	Meshes   []ColliderTag
	Spheres  []ColliderTag
	Boxes    []ColliderTag
	Capsules []ColliderTag
}

func (c *ShapeCandidates) Reset() {
	c.Meshes = c.Meshes[:0]
	c.Spheres = c.Spheres[:0]
	c.Boxes = c.Boxes[:0]
	c.Capsules = c.Capsules[:0]
}

// Len returns the total number of candidates
func (c *ShapeCandidates) Len() int {
	return len(c.Meshes) + len(c.Spheres) + len(c.Boxes) + len(c.Capsules)
}

func (c *ShapeCandidates) add(tag ColliderTag) {
	switch tag.Shape {
	case ShapeMesh:
		c.Meshes = append(c.Meshes, tag)
	case ShapeSphere:
		c.Spheres = append(c.Spheres, tag)
	case ShapeBox:
		c.Boxes = append(c.Boxes, tag)
	case ShapeCapsule:
		c.Capsules = append(c.Capsules, tag)
	}
}

// DynamicAABBTree is a balanced bounding volume hierarchy over fattened collider AABBs.
// Nodes live in a single slice and vacated slots are recycled through a free list,
// so a TreeIndex stays valid until its leaf is removed.
type DynamicAABBTree struct {
	nodes    []treeNode
	root     TreeIndex
	freeList TreeIndex
	margin   float64

	leaves map[ColliderTag]TreeIndex

	// scratch buffers reused between queries
	stack      []TreeIndex
	candidates siblingQueue
}

func NewDynamicAABBTree(margin float64) *DynamicAABBTree {
	return &DynamicAABBTree{
		nodes:    make([]treeNode, 0, 16),
		root:     NullIndex,
		freeList: NullIndex,
		margin:   margin,
		leaves:   make(map[ColliderTag]TreeIndex),
	}
}

// Len returns the number of leaves
func (t *DynamicAABBTree) Len() int {
	return len(t.leaves)
}

// Height returns the height of the root, 0 for an empty tree
func (t *DynamicAABBTree) Height() int {
	if t.root == NullIndex {
		return 0
	}
	return t.nodes[t.root].height
}

// FatAABB returns the stored, fattened, AABB of a leaf
func (t *DynamicAABBTree) FatAABB(tag ColliderTag) (actor.AABB, bool) {
	index, ok := t.leaves[tag]
	if !ok {
		return actor.AABB{}, false
	}
	return t.nodes[index].aabb, true
}

// Cost returns the summed surface area of the internal nodes, the quantity sibling selection minimizes
func (t *DynamicAABBTree) Cost() float64 {
	cost := 0.0
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.height > 0 {
			cost += n.aabb.Area()
		}
	}
	return cost
}

func (t *DynamicAABBTree) Clear() {
	t.nodes = t.nodes[:0]
	t.root = NullIndex
	t.freeList = NullIndex
	clear(t.leaves)
}

func (t *DynamicAABBTree) allocateNode() TreeIndex {
	var index TreeIndex
	if t.freeList != NullIndex {
		index = t.freeList
		t.freeList = t.nodes[index].next
	} else {
		t.nodes = append(t.nodes, treeNode{})
		index = TreeIndex(len(t.nodes) - 1)
	}

	t.nodes[index] = treeNode{
		parent: NullIndex,
		next:   NullIndex,
		left:   NullIndex,
		right:  NullIndex,
	}
	return index
}

func (t *DynamicAABBTree) freeNode(index TreeIndex) {
	n := &t.nodes[index]
	n.height = -1
	n.parent = NullIndex
	n.left = NullIndex
	n.right = NullIndex
	n.next = t.freeList
	t.freeList = index
}

// Insert adds a leaf for tag. An already present tag is moved instead.
func (t *DynamicAABBTree) Insert(tag ColliderTag, layer CollisionLayer, aabb actor.AABB) TreeIndex {
	if index, ok := t.leaves[tag]; ok {
		t.Update(tag, layer, aabb)
		return index
	}

	leaf := t.allocateNode()
	n := &t.nodes[leaf]
	n.aabb = aabb.Expand(t.margin)
	n.tag = tag
	n.layer = layer

	t.leaves[tag] = leaf
	t.insertLeaf(leaf)

	return leaf
}

// Remove deletes the leaf of tag, it returns false if the tag is not in the tree
func (t *DynamicAABBTree) Remove(tag ColliderTag) bool {
	leaf, ok := t.leaves[tag]
	if !ok {
		return false
	}

	delete(t.leaves, tag)
	if leaf == t.root {
		t.Clear()
		return true
	}

	t.removeLeaf(leaf)
	t.freeNode(leaf)

	return true
}

// Update refits the leaf of tag. The layer is always refreshed, but the tree is only
// restructured when the fattened AABB no longer contains aabb. It returns true if the
// tree changed. An unknown tag is inserted.
func (t *DynamicAABBTree) Update(tag ColliderTag, layer CollisionLayer, aabb actor.AABB) bool {
	leaf, ok := t.leaves[tag]
	if !ok {
		t.Insert(tag, layer, aabb)
		return true
	}

	n := &t.nodes[leaf]
	n.layer = layer
	if n.aabb.Contains(aabb) {
		return false
	}

	t.removeLeaf(leaf)
	t.nodes[leaf].aabb = aabb.Expand(t.margin)
	t.insertLeaf(leaf)

	return true
}

// UpdateBatch applies several updates, returning how many restructured the tree
func (t *DynamicAABBTree) UpdateBatch(updates []TreeUpdate) int {
	changed := 0
	for _, u := range updates {
		if t.Update(u.Tag, u.Layer, u.AABB) {
			changed++
		}
	}
	return changed
}

func (t *DynamicAABBTree) insertLeaf(leaf TreeIndex) {
	if t.root == NullIndex {
		t.root = leaf
		t.nodes[leaf].parent = NullIndex
		return
	}

	leafAABB := t.nodes[leaf].aabb
	sibling := t.findBestSibling(leafAABB)

	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()

	p := &t.nodes[newParent]
	p.parent = oldParent
	p.aabb = leafAABB.Union(t.nodes[sibling].aabb)
	p.height = t.nodes[sibling].height + 1
	p.left = sibling
	p.right = leaf

	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent == NullIndex {
		t.root = newParent
	} else if t.nodes[oldParent].left == sibling {
		t.nodes[oldParent].left = newParent
	} else {
		t.nodes[oldParent].right = newParent
	}

	t.synchHierarchy(newParent)
}

// removeLeaf detaches leaf from the hierarchy, promoting its sibling. The leaf node itself is kept.
func (t *DynamicAABBTree) removeLeaf(leaf TreeIndex) {
	if leaf == t.root {
		t.root = NullIndex
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent

	sibling := t.nodes[parent].left
	if sibling == leaf {
		sibling = t.nodes[parent].right
	}

	if grandParent == NullIndex {
		t.root = sibling
		t.nodes[sibling].parent = NullIndex
		t.freeNode(parent)
		return
	}

	if t.nodes[grandParent].left == parent {
		t.nodes[grandParent].left = sibling
	} else {
		t.nodes[grandParent].right = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.freeNode(parent)

	t.synchHierarchy(grandParent)
}

// synchHierarchy walks from index up to the root, refreshing heights and AABBs and
// rebalancing the subtrees high enough to be rotated.
func (t *DynamicAABBTree) synchHierarchy(index TreeIndex) {
	for index != NullIndex {
		t.refresh(index)
		if t.nodes[index].height >= 2 {
			index = t.balance(index)
		}
		index = t.nodes[index].parent
	}
}

func (t *DynamicAABBTree) refresh(index TreeIndex) {
	n := &t.nodes[index]
	left := &t.nodes[n.left]
	right := &t.nodes[n.right]

	n.height = 1 + max(left.height, right.height)
	n.aabb = left.aabb.Union(right.aabb)
}

// balance performs a single rotation when the children heights of a differ by more than one,
// promoting the taller child. It returns the index of the new subtree root.
func (t *DynamicAABBTree) balance(a TreeIndex) TreeIndex {
	nodeA := &t.nodes[a]
	if nodeA.isLeaf() || nodeA.height < 2 {
		return a
	}

	b := nodeA.left
	c := nodeA.right
	diff := t.nodes[c].height - t.nodes[b].height

	if diff > 1 {
		t.rotate(a, c, false)
		return c
	}
	if diff < -1 {
		t.rotate(a, b, true)
		return b
	}

	return a
}

// rotate promotes the child up over a, promotedLeft tells on which side of a up was hanging
func (t *DynamicAABBTree) rotate(a, up TreeIndex, promotedLeft bool) {
	f := t.nodes[up].left
	g := t.nodes[up].right

	// up takes the place of a
	t.nodes[up].left = a
	t.nodes[up].parent = t.nodes[a].parent
	t.nodes[a].parent = up

	if parent := t.nodes[up].parent; parent != NullIndex {
		if t.nodes[parent].left == a {
			t.nodes[parent].left = up
		} else {
			t.nodes[parent].right = up
		}
	} else {
		t.root = up
	}

	// the taller grandchild stays under up, the other one moves under a
	keep, move := f, g
	if t.nodes[g].height > t.nodes[f].height {
		keep, move = g, f
	}

	t.nodes[up].right = keep
	if promotedLeft {
		t.nodes[a].left = move
	} else {
		t.nodes[a].right = move
	}
	t.nodes[move].parent = a

	t.refresh(a)
	t.refresh(up)
}

// findBestSibling searches the node whose union with aabb adds the least surface area
// to the tree. Subtrees are explored cheapest lower bound first and pruned once their
// lower bound exceeds the best cost found.
func (t *DynamicAABBTree) findBestSibling(aabb actor.AABB) TreeIndex {
	area := aabb.Area()

	best := t.root
	bestCost := t.nodes[t.root].aabb.Union(aabb).Area()

	queue := &t.candidates
	*queue = (*queue)[:0]
	heap.Push(queue, siblingCandidate{index: t.root, inherited: 0, lowerBound: area})

	for queue.Len() > 0 {
		candidate := heap.Pop(queue).(siblingCandidate)
		if candidate.lowerBound >= bestCost {
			break
		}

		n := &t.nodes[candidate.index]
		direct := n.aabb.Union(aabb).Area()
		cost := direct + candidate.inherited
		if cost < bestCost {
			best = candidate.index
			bestCost = cost
		}

		if n.isLeaf() {
			continue
		}

		inherited := candidate.inherited + direct - n.aabb.Area()
		lowerBound := area + inherited
		if lowerBound < bestCost {
			heap.Push(queue, siblingCandidate{index: n.left, inherited: inherited, lowerBound: lowerBound})
			heap.Push(queue, siblingCandidate{index: n.right, inherited: inherited, lowerBound: lowerBound})
		}
	}

	return best
}

// Query appends to out the tags of the leaves intersecting aabb whose layer matches mask.
// The caller's own tag is never reported.
func (t *DynamicAABBTree) Query(caller ColliderTag, mask CollisionLayer, aabb actor.AABB, out []ColliderTag) []ColliderTag {
	t.traverse(
		func(box actor.AABB) bool { return box.Intersects(aabb) },
		func(n *treeNode) {
			if n.tag != caller && n.layer&mask != 0 {
				out = append(out, n.tag)
			}
		},
	)
	return out
}

// QueryByShape is Query with the results split by shape
func (t *DynamicAABBTree) QueryByShape(caller ColliderTag, mask CollisionLayer, aabb actor.AABB, candidates *ShapeCandidates) {
	t.traverse(
		func(box actor.AABB) bool { return box.Intersects(aabb) },
		func(n *treeNode) {
			if n.tag != caller && n.layer&mask != 0 {
				candidates.add(n.tag)
			}
		},
	)
}

// QueryRaycast appends to out the tags of the leaves whose fat AABB is hit by the ray
func (t *DynamicAABBTree) QueryRaycast(origin, direction mgl64.Vec3, maxDistance float64, mask CollisionLayer, out []ColliderTag) []ColliderTag {
	t.traverse(
		func(box actor.AABB) bool { return box.IntersectRay(origin, direction, maxDistance) },
		func(n *treeNode) {
			if n.layer&mask != 0 {
				out = append(out, n.tag)
			}
		},
	)
	return out
}

// traverse visits with an explicit stack every leaf whose ancestors all pass test
func (t *DynamicAABBTree) traverse(test func(actor.AABB) bool, visit func(*treeNode)) {
	if t.root == NullIndex {
		return
	}

	stack := append(t.stack[:0], t.root)
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[index]
		if !test(n.aabb) {
			continue
		}

		if n.isLeaf() {
			visit(n)
			continue
		}

		stack = append(stack, n.left, n.right)
	}
	t.stack = stack
}

// Validate checks the structural invariants: parent links, heights, AABB unions and
// the leaf index. It is meant for tests and debugging.
func (t *DynamicAABBTree) Validate() error {
	if t.root == NullIndex {
		if len(t.leaves) != 0 {
			return fmt.Errorf("empty tree indexes %d leaves", len(t.leaves))
		}
		return nil
	}

	if t.nodes[t.root].parent != NullIndex {
		return fmt.Errorf("root %d has parent %d", t.root, t.nodes[t.root].parent)
	}

	leaves, reachable, err := t.validateNode(t.root)
	if err != nil {
		return err
	}
	if leaves != len(t.leaves) {
		return fmt.Errorf("%d leaves reachable, %d indexed", leaves, len(t.leaves))
	}

	free := 0
	for index := t.freeList; index != NullIndex; index = t.nodes[index].next {
		if t.nodes[index].height != -1 {
			return fmt.Errorf("free node %d has height %d", index, t.nodes[index].height)
		}
		free++
	}
	if reachable+free != len(t.nodes) {
		return fmt.Errorf("%d reachable and %d free nodes out of %d", reachable, free, len(t.nodes))
	}

	for tag, index := range t.leaves {
		n := &t.nodes[index]
		if !n.isLeaf() || n.tag != tag {
			return fmt.Errorf("tag %v indexes node %d holding %v", tag, index, n.tag)
		}
	}

	return nil
}

func (t *DynamicAABBTree) validateNode(index TreeIndex) (leaves int, reachable int, err error) {
	n := &t.nodes[index]

	if n.isLeaf() {
		if n.left != NullIndex {
			return 0, 0, fmt.Errorf("leaf %d has a left child", index)
		}
		if n.height != 0 {
			return 0, 0, fmt.Errorf("leaf %d has height %d", index, n.height)
		}
		return 1, 1, nil
	}

	for _, child := range [2]TreeIndex{n.left, n.right} {
		if t.nodes[child].parent != index {
			return 0, 0, fmt.Errorf("node %d has parent %d, expected %d", child, t.nodes[child].parent, index)
		}
	}

	left, right := &t.nodes[n.left], &t.nodes[n.right]
	if n.height != 1+max(left.height, right.height) {
		return 0, 0, fmt.Errorf("node %d has height %d, children %d and %d", index, n.height, left.height, right.height)
	}
	if n.aabb != left.aabb.Union(right.aabb) {
		return 0, 0, fmt.Errorf("node %d aabb %v is not the union of its children", index, n.aabb)
	}

	leftLeaves, leftReachable, err := t.validateNode(n.left)
	if err != nil {
		return 0, 0, err
	}
	rightLeaves, rightReachable, err := t.validateNode(n.right)
	if err != nil {
		return 0, 0, err
	}

	return leftLeaves + rightLeaves, leftReachable + rightReachable + 1, nil
}

type siblingCandidate struct {
	index      TreeIndex
	inherited  float64
	lowerBound float64
}

// siblingQueue is a min-heap on lowerBound
type siblingQueue []siblingCandidate

func (q siblingQueue) Len() int           { return len(q) }
func (q siblingQueue) Less(i, j int) bool { return q[i].lowerBound < q[j].lowerBound }
func (q siblingQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *siblingQueue) Push(x any) {
	*q = append(*q, x.(siblingCandidate))
}

func (q *siblingQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
