package bayspos

import (
	"errors"
	"fmt"
	"sort"
)

// ErrEmptyCount is returned when a count would be decremented below zero.
var ErrEmptyCount = errors.New("count is already zero")

type countNode struct {
	total    int
	parent   int32
	key      int
	children map[int]int32 // conditioning key to child node, interior levels
	counts   map[int]int   // key to count, last level
}

// CountTable is a multi-level sparse counter.
// A path of depth conditioning keys selects a leaf, and every node on the path keeps its own cumulative count.
// Nodes live in an arena; the slots of pruned nodes are recycled through a free-list.
type CountTable struct {
	depth int
	nodes []countNode
	free  []int32
}

// CountEntry is one (path, key, count) triple of a CountTable.
type CountEntry struct {
	Path  []int
	Key   int
	Count int
}

// NewCountTable returns CountTable instance conditioned on depth keys.
func NewCountTable(depth int) *CountTable {
	if depth < 0 {
		panic("range of depth is 0 to inf")
	}
	table := new(CountTable)
	table.depth = depth
	table.nodes = []countNode{{parent: -1}}
	return table
}

// Depth returns the number of conditioning levels.
func (table *CountTable) Depth() int {
	return table.depth
}

func (table *CountTable) alloc(parent int32, key int) int32 {
	node := countNode{parent: parent, key: key}
	if n := len(table.free); n > 0 {
		idx := table.free[n-1]
		table.free = table.free[:n-1]
		if len(table.free) == 0 {
			table.free = nil
		}
		table.nodes[idx] = node
		return idx
	}
	table.nodes = append(table.nodes, node)
	return int32(len(table.nodes) - 1)
}

func (table *CountTable) release(idx int32) {
	table.nodes[idx] = countNode{parent: -1}
	table.free = append(table.free, idx)
}

// lookup returns the node at the end of path, or -1 when some level is absent.
func (table *CountTable) lookup(path []int) int32 {
	idx := int32(0)
	for _, p := range path {
		child, ok := table.nodes[idx].children[p]
		if !ok {
			return -1
		}
		idx = child
	}
	return idx
}

func (table *CountTable) checkPath(path []int) {
	if len(path) != table.depth {
		errMsg := fmt.Sprintf("count table error. path (%v) does not have depth %v", path, table.depth)
		panic(errMsg)
	}
}

// Inc adds one to key under path and returns the new count.
func (table *CountTable) Inc(path []int, key int) int {
	return table.Add(path, key, 1)
}

// Add adds n (n > 0) to key under path and returns the new count.
func (table *CountTable) Add(path []int, key int, n int) int {
	table.checkPath(path)
	if n <= 0 {
		panic("count table error. n should be bigger than 0")
	}
	idx := int32(0)
	table.nodes[idx].total += n
	for _, p := range path {
		child, ok := table.nodes[idx].children[p]
		if !ok {
			child = table.alloc(idx, p)
			if table.nodes[idx].children == nil {
				table.nodes[idx].children = make(map[int]int32)
			}
			table.nodes[idx].children[p] = child
		}
		idx = child
		table.nodes[idx].total += n
	}
	if table.nodes[idx].counts == nil {
		table.nodes[idx].counts = make(map[int]int)
	}
	table.nodes[idx].counts[key] += n
	return table.nodes[idx].counts[key]
}

// Dec removes one from key under path and returns the new count.
// exhausted reports that the cumulative count of the whole path reached zero; the emptied levels are pruned.
func (table *CountTable) Dec(path []int, key int) (int, bool, error) {
	table.checkPath(path)
	leaf := table.lookup(path)
	if leaf < 0 || table.nodes[leaf].counts[key] == 0 {
		return 0, false, fmt.Errorf("decrement key %v under path %v: %w", key, path, ErrEmptyCount)
	}

	counts := table.nodes[leaf].counts
	counts[key]--
	count := counts[key]
	if count == 0 {
		delete(counts, key)
		if len(counts) == 0 {
			table.nodes[leaf].counts = nil
		}
	}
	for idx := leaf; idx >= 0; idx = table.nodes[idx].parent {
		table.nodes[idx].total--
	}
	exhausted := table.nodes[leaf].total == 0

	// remove empty levels from the leaf upward; the root stays
	idx := leaf
	for idx > 0 && table.nodes[idx].total == 0 {
		parent := table.nodes[idx].parent
		siblings := table.nodes[parent].children
		delete(siblings, table.nodes[idx].key)
		if len(siblings) == 0 {
			table.nodes[parent].children = nil
		}
		table.release(idx)
		idx = parent
	}
	return count, exhausted, nil
}

// Count returns the count of key under path. Absent entries count 0.
func (table *CountTable) Count(path []int, key int) int {
	table.checkPath(path)
	leaf := table.lookup(path)
	if leaf < 0 {
		return 0
	}
	return table.nodes[leaf].counts[key]
}

// CumulativeCount returns the total count below prefix, which may stop at any level.
func (table *CountTable) CumulativeCount(prefix []int) int {
	if len(prefix) > table.depth {
		errMsg := fmt.Sprintf("count table error. prefix (%v) is deeper than %v", prefix, table.depth)
		panic(errMsg)
	}
	idx := table.lookup(prefix)
	if idx < 0 {
		return 0
	}
	return table.nodes[idx].total
}

// Total returns the count of every entry in the table.
func (table *CountTable) Total() int {
	return table.nodes[0].total
}

// Keys returns the keys with a non-zero count under path in ascending order.
func (table *CountTable) Keys(path []int) []int {
	table.checkPath(path)
	leaf := table.lookup(path)
	if leaf < 0 {
		return nil
	}
	keys := make([]int, 0, len(table.nodes[leaf].counts))
	for key := range table.nodes[leaf].counts {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

// Entries returns every non-zero entry sorted by path then key.
func (table *CountTable) Entries() []CountEntry {
	var entries []CountEntry
	path := make([]int, 0, table.depth)
	var walk func(idx int32)
	walk = func(idx int32) {
		node := table.nodes[idx]
		if len(path) == table.depth {
			keys := make([]int, 0, len(node.counts))
			for key := range node.counts {
				keys = append(keys, key)
			}
			sort.Ints(keys)
			for _, key := range keys {
				entries = append(entries, CountEntry{Path: append([]int(nil), path...), Key: key, Count: node.counts[key]})
			}
			return
		}
		conds := make([]int, 0, len(node.children))
		for p := range node.children {
			conds = append(conds, p)
		}
		sort.Ints(conds)
		for _, p := range conds {
			path = append(path, p)
			walk(node.children[p])
			path = path[:len(path)-1]
		}
	}
	walk(0)
	return entries
}

type typeSlot struct {
	name  string
	count int
}

// TypeIndex maps string types to dense ids.
// A slot's count is the number of occurrences of its type across every context; the id returns to the free-list when it reaches zero.
type TypeIndex struct {
	slots []typeSlot
	free  []int
	ids   map[string]int
}

// NewTypeIndex returns TypeIndex instance.
func NewTypeIndex() *TypeIndex {
	return &TypeIndex{ids: make(map[string]int)}
}

// Acquire counts one occurrence of name and returns its id, reusing a freed id for a new type.
func (index *TypeIndex) Acquire(name string) int {
	if id, ok := index.ids[name]; ok {
		index.slots[id].count++
		return id
	}
	id := len(index.slots)
	if n := len(index.free); n > 0 {
		id = index.free[n-1]
		index.free = index.free[:n-1]
		if len(index.free) == 0 {
			index.free = nil
		}
		index.slots[id] = typeSlot{name: name, count: 1}
	} else {
		index.slots = append(index.slots, typeSlot{name: name, count: 1})
	}
	index.ids[name] = id
	return id
}

// Release removes one occurrence of id and reports whether the id was freed.
func (index *TypeIndex) Release(id int) bool {
	if id < 0 || id >= len(index.slots) || index.slots[id].count == 0 {
		errMsg := fmt.Sprintf("type index error. id (%v) is not in use", id)
		panic(errMsg)
	}
	index.slots[id].count--
	if index.slots[id].count > 0 {
		return false
	}
	delete(index.ids, index.slots[id].name)
	index.slots[id] = typeSlot{}
	index.free = append(index.free, id)
	return true
}

// Lookup returns the id of name without counting it.
func (index *TypeIndex) Lookup(name string) (int, bool) {
	id, ok := index.ids[name]
	return id, ok
}

// Count returns the number of occurrences of name.
func (index *TypeIndex) Count(name string) int {
	if id, ok := index.ids[name]; ok {
		return index.slots[id].count
	}
	return 0
}

// Name returns the type stored at id.
func (index *TypeIndex) Name(id int) string {
	return index.slots[id].name
}

// Len returns the number of live types.
func (index *TypeIndex) Len() int {
	return len(index.ids)
}

// Capacity returns the number of slots, live or free.
func (index *TypeIndex) Capacity() int {
	return len(index.slots)
}

// Lexicon counts string types under integer conditioning paths.
type Lexicon struct {
	table *CountTable
	types *TypeIndex
}

// NewLexicon returns Lexicon instance conditioned on depth keys.
func NewLexicon(depth int) *Lexicon {
	return &Lexicon{table: NewCountTable(depth), types: NewTypeIndex()}
}

// Inc adds one to key under path and returns the new count.
func (lexicon *Lexicon) Inc(path []int, key string) int {
	id := lexicon.types.Acquire(key)
	return lexicon.table.Inc(path, id)
}

// Dec removes one from key under path. See CountTable.Dec.
func (lexicon *Lexicon) Dec(path []int, key string) (int, bool, error) {
	id, ok := lexicon.types.Lookup(key)
	if !ok {
		return 0, false, fmt.Errorf("decrement type %q under path %v: %w", key, path, ErrEmptyCount)
	}
	count, exhausted, err := lexicon.table.Dec(path, id)
	if err != nil {
		return 0, false, fmt.Errorf("decrement type %q: %w", key, err)
	}
	lexicon.types.Release(id)
	return count, exhausted, nil
}

// Count returns the count of key under path.
func (lexicon *Lexicon) Count(path []int, key string) int {
	id, ok := lexicon.types.Lookup(key)
	if !ok {
		return 0
	}
	return lexicon.table.Count(path, id)
}

// CumulativeCount returns the total count below prefix.
func (lexicon *Lexicon) CumulativeCount(prefix []int) int {
	return lexicon.table.CumulativeCount(prefix)
}

// TypeCount returns the count of key across every context.
func (lexicon *Lexicon) TypeCount(key string) int {
	return lexicon.types.Count(key)
}

// Total returns the count of every entry.
func (lexicon *Lexicon) Total() int {
	return lexicon.table.Total()
}

// Keys returns the types with a non-zero count under path, ordered by id.
func (lexicon *Lexicon) Keys(path []int) []string {
	ids := lexicon.table.Keys(path)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = lexicon.types.Name(id)
	}
	return keys
}
