package reconcile

import (
	"context"
	"fmt"
	"sort"
)

// step is one reconciler of a product sync.
type step struct {
	name      string
	dependsOn []string
	run       func(context.Context, *productSync) error
}

// Every reconciler needs the product's remote id, so "product" comes first.
// Applications wait for the authentication mode, and promotion publishes
// whatever the other steps staged.
var productSteps = []step{
	{name: "product", run: reconcileProduct},
	{name: "auth", dependsOn: []string{"product"}, run: reconcileAuth},
	{name: "applications", dependsOn: []string{"product", "auth"}, run: reconcileApplications},
	{name: "backends", dependsOn: []string{"product"}, run: reconcileBackends},
	{name: "mappings", dependsOn: []string{"product"}, run: reconcileMappings},
	{name: "policies", dependsOn: []string{"product"}, run: reconcilePolicies},
	{name: "promote", dependsOn: []string{"auth", "applications", "backends", "mappings", "policies"}, run: promote},
}

var orderedSteps = mustOrder(productSteps)

// stepNames lists the steps of a product sync in execution order.
func stepNames() []string {
	names := make([]string, len(orderedSteps))
	for i, st := range orderedSteps {
		names[i] = st.name
	}
	return names
}

func mustOrder(steps []step) []step {
	ordered, err := topologicalOrder(steps)
	if err != nil {
		panic(err)
	}
	return ordered
}

// topologicalOrder sorts steps so each runs after its dependencies. Ties are
// broken by name so the order is deterministic.
func topologicalOrder(steps []step) ([]step, error) {
	byName := make(map[string]step, len(steps))
	inDegree := make(map[string]int, len(steps))
	dependents := make(map[string][]string, len(steps))

	for _, st := range steps {
		if _, dup := byName[st.name]; dup {
			return nil, fmt.Errorf("duplicate step %s", st.name)
		}
		byName[st.name] = st
		inDegree[st.name] = 0
	}

	for _, st := range steps {
		for _, dep := range st.dependsOn {
			if _, exists := byName[dep]; !exists {
				return nil, fmt.Errorf("step %s depends on unknown step %s", st.name, dep)
			}
			inDegree[st.name]++
			dependents[dep] = append(dependents[dep], st.name)
		}
	}

	queue := make([]string, 0)
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	ordered := make([]step, 0, len(steps))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		ordered = append(ordered, byName[current])

		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
		sort.Strings(queue)
	}

	if len(ordered) != len(steps) {
		return nil, fmt.Errorf("cycle detected in product steps")
	}

	return ordered, nil
}
