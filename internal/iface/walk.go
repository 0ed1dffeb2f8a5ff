package iface

// Walk calls visit once for root and once for every interface root
// transitively extends. Interfaces reachable through several paths are
// visited once. A nil root visits nothing.
//
// The order is depth-first pre-order following declaration order of
// extends. Callers should depend only on completeness and uniqueness.
func Walk(root *Interface, visit func(*Interface)) {
	if root == nil || visit == nil {
		return
	}

	seen := make(map[*Interface]bool)
	stack := []*Interface{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		visit(cur)

		// Push in reverse so the first extended interface is visited first.
		for i := len(cur.extends) - 1; i >= 0; i-- {
			if next := cur.extends[i]; !seen[next] {
				stack = append(stack, next)
			}
		}
	}
}

// Closure returns root and every interface it transitively extends,
// each exactly once, in Walk order.
func Closure(root *Interface) []*Interface {
	var out []*Interface
	Walk(root, func(i *Interface) {
		out = append(out, i)
	})
	return out
}

// IsA reports whether i is other or transitively extends it.
func (i *Interface) IsA(other *Interface) bool {
	if i == nil || other == nil {
		return false
	}
	found := false
	Walk(i, func(cur *Interface) {
		if cur == other {
			found = true
		}
	})
	return found
}
