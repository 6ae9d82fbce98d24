package miner

import "sort"

// item is one (column, token) pair of the nominal dataset. Items are
// interned to dense integer ids before the level-wise search.
type item struct {
	col   int
	token string
}

// itemset is a frequent itemset with its absolute transaction count.
// Items are sorted ascending by id.
type itemset struct {
	items []int
	count int
}

// internDataset converts encoded rows into sorted integer transactions,
// skipping the missing marker. Returns the transactions, the item table
// indexed by id, and the per-item transaction counts.
func internDataset(dataset [][]string, missing string) ([][]int, []item, []int) {
	ids := make(map[item]int)
	var table []item
	var counts []int

	transactions := make([][]int, 0, len(dataset))
	for _, row := range dataset {
		var tx []int
		for col, token := range row {
			if token == missing || token == "" {
				continue
			}
			it := item{col: col, token: token}
			id, ok := ids[it]
			if !ok {
				id = len(table)
				ids[it] = id
				table = append(table, it)
				counts = append(counts, 0)
			}
			counts[id]++
			tx = append(tx, id)
		}
		sort.Ints(tx)
		transactions = append(transactions, tx)
	}
	return transactions, table, counts
}

// frequentItemsets runs the level-wise Apriori search: singletons meeting
// minCount seed level 1, candidates at level k are joined from level k-1
// itemsets sharing a (k-2)-prefix and pruned unless all their (k-1)-subsets
// are frequent, then counted by a scan over the transactions.
func frequentItemsets(transactions [][]int, itemCounts []int, minCount int) []itemset {
	var frequent []itemset
	frequentKeys := make(map[string]int)

	var level []itemset
	for id, count := range itemCounts {
		if count >= minCount {
			set := itemset{items: []int{id}, count: count}
			level = append(level, set)
			frequent = append(frequent, set)
			frequentKeys[itemsetKey(set.items)] = count
		}
	}

	for len(level) > 1 {
		candidates := joinLevel(level, frequentKeys)
		if len(candidates) == 0 {
			break
		}
		countCandidates(transactions, candidates)

		var next []itemset
		for _, c := range candidates {
			if c.count >= minCount {
				next = append(next, *c)
				frequent = append(frequent, *c)
				frequentKeys[itemsetKey(c.items)] = c.count
			}
		}
		level = next
	}
	return frequent
}

// joinLevel generates k+1 candidates from the level-k itemsets. The level
// is kept lexicographically sorted, so itemsets sharing all but the last
// item are adjacent under the prefix comparison.
func joinLevel(level []itemset, frequentKeys map[string]int) []*itemset {
	sort.Slice(level, func(i, j int) bool {
		return lessItems(level[i].items, level[j].items)
	})

	var candidates []*itemset
	for i := 0; i < len(level); i++ {
		for j := i + 1; j < len(level); j++ {
			a, b := level[i].items, level[j].items
			if !samePrefix(a, b) {
				break
			}
			joined := make([]int, len(a)+1)
			copy(joined, a)
			joined[len(a)] = b[len(b)-1]
			if hasInfrequentSubset(joined, frequentKeys) {
				continue
			}
			candidates = append(candidates, &itemset{items: joined})
		}
	}
	return candidates
}

// samePrefix reports whether two equal-length sorted itemsets agree on all
// but their last item.
func samePrefix(a, b []int) bool {
	for k := 0; k < len(a)-1; k++ {
		if a[k] != b[k] {
			return false
		}
	}
	return a[len(a)-1] < b[len(b)-1]
}

// hasInfrequentSubset prunes a candidate whose (k-1)-subsets are not all
// frequent.
func hasInfrequentSubset(items []int, frequentKeys map[string]int) bool {
	subset := make([]int, 0, len(items)-1)
	for skip := range items {
		subset = subset[:0]
		for k, id := range items {
			if k != skip {
				subset = append(subset, id)
			}
		}
		if _, ok := frequentKeys[itemsetKey(subset)]; !ok {
			return true
		}
	}
	return false
}

// countCandidates counts each candidate's occurrences with a merge scan
// per transaction.
func countCandidates(transactions [][]int, candidates []*itemset) {
	for _, tx := range transactions {
		for _, c := range candidates {
			if containsSorted(tx, c.items) {
				c.count++
			}
		}
	}
}

// containsSorted reports whether sorted slice tx contains every element of
// sorted slice sub.
func containsSorted(tx, sub []int) bool {
	i := 0
	for _, want := range sub {
		for i < len(tx) && tx[i] < want {
			i++
		}
		if i >= len(tx) || tx[i] != want {
			return false
		}
		i++
	}
	return true
}

func lessItems(a, b []int) bool {
	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return len(a) < len(b)
}

func itemsetKey(items []int) string {
	// Items are small dense ids; a byte-packed key keeps map lookups cheap.
	buf := make([]byte, 0, len(items)*3)
	for _, id := range items {
		buf = append(buf, byte(id), byte(id>>8), byte(id>>16))
	}
	return string(buf)
}
