package builder

import "github.com/tordrt/relstore/internal/schema"

// sortByDependency orders tables so that every foreign key target is created
// before its referrer (Kahn's algorithm). Self-references are ignored. The
// second result reports whether the graph was acyclic; on a cycle the
// returned order covers only the acyclic prefix.
func sortByDependency(tables []schema.Table) ([]schema.Table, bool) {
	byName := make(map[string]int, len(tables))
	for i, t := range tables {
		byName[t.Name] = i
	}

	inDegree := make([]int, len(tables))
	children := make([][]int, len(tables))
	for i, t := range tables {
		for _, fk := range t.ForeignKeys {
			target, ok := byName[fk.TargetTable]
			if !ok || target == i {
				continue
			}
			children[target] = append(children[target], i)
			inDegree[i]++
		}
	}

	var queue []int
	for i := range tables {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]schema.Table, 0, len(tables))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, tables[node])

		for _, child := range children[node] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	return order, len(order) == len(tables)
}
