package routing

import (
	"errors"
	"fmt"
)

// Route is the configured agent identity for one region.
type Route struct {
	AgentID   string
	FromPhone string
}

// Table is an immutable region -> route mapping, loaded once at startup and passed
// explicitly to whoever places calls. Resolve is safe for concurrent use.
//
// Regions without a configured route are simply absent: a contact tagged only with
// such a region resolves to "no route".
type Table struct {
	entries []entry
}

type entry struct {
	region Region
	route  Route
}

// NewTable validates routes and fixes their scan order.
func NewTable(routes map[Region]Route) (Table, error) {
	known := make(map[Region]bool, len(ScanOrder))
	for _, r := range ScanOrder {
		known[r] = true
	}

	var errs []error
	for r, rt := range routes {
		if !known[r] {
			errs = append(errs, fmt.Errorf("routing: unknown region %q", r))
			continue
		}
		if rt.AgentID == "" || rt.FromPhone == "" {
			errs = append(errs, fmt.Errorf("routing: region %s needs both agent id and source phone", r))
		}
	}
	if len(errs) > 0 {
		return Table{}, errors.Join(errs...)
	}

	t := Table{}
	for _, r := range ScanOrder {
		if rt, ok := routes[r]; ok {
			t.entries = append(t.entries, entry{region: r, route: rt})
		}
	}
	return t, nil
}

// Len is the number of configured regions.
func (t Table) Len() int { return len(t.entries) }

// Resolve returns the route of the first region, in ScanOrder, whose tag is in tags.
// ok is false when no configured region matches.
func (t Table) Resolve(tags []string) (d Decision, ok bool) {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}

	for _, e := range t.entries {
		for _, tag := range e.region.Tags() {
			if _, hit := set[tag]; hit {
				return Decision{
					Region:     e.region,
					AgentID:    e.route.AgentID,
					FromPhone:  e.route.FromPhone,
					MatchedTag: tag,
				}, true
			}
		}
	}
	return Decision{}, false
}
