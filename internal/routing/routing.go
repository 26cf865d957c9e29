// Package routing turns breakdown-of-work text into a dependency-ordered
// set of work orders and computes the execution layers the orchestrator
// dispatches.
//
// The breakdown format is a numbered list, one item per line:
//
//  1. Create project scaffold
//  2. Implement fibonacci logic (depends: 1)
//  3. Set up testing framework (depends: 1)
//  4. Write and run tests (depends: 2, 3)
//
// Numbers are 1-based and must appear in strictly increasing order matching
// the list position. Dependency references are 1-based in the text and
// stored 0-based internally; that conversion happens here and nowhere else.
package routing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kaizengine/shopfloor/internal/errors"
	"github.com/kaizengine/shopfloor/internal/order"
)

var (
	itemPattern = regexp.MustCompile(`^(\d+)\.\s+(.+)$`)
	depPattern  = regexp.MustCompile(`\s*\(depends:\s*([\d,\s]+)\)\s*$`)
)

// ParseWorkOrders parses numbered breakdown text into work orders.
//
// Each line must match "<N>. <description>", optionally suffixed with
// "(depends: i[, j...])" where every reference points at an earlier number
// in the same list. Blank lines are skipped. It returns a ParseError for a
// malformed line, a forward or self dependency reference, or an empty list.
func ParseWorkOrders(text string) ([]*order.WorkOrder, error) {
	var orders []*order.WorkOrder

	next := 1
	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		m := itemPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, errors.NewParseError(lineNo+1, "line does not match '<N>. <description>': %q", line)
		}

		num, err := strconv.Atoi(m[1])
		if err != nil || num != next {
			return nil, errors.NewParseError(lineNo+1, "expected item number %d, got %q", next, m[1])
		}

		desc := strings.TrimSpace(m[2])
		var deps []int
		if dm := depPattern.FindStringSubmatch(desc); dm != nil {
			deps, err = parseDeps(dm[1], num, lineNo+1)
			if err != nil {
				return nil, err
			}
			desc = strings.TrimSpace(depPattern.ReplaceAllString(desc, ""))
		}
		if desc == "" {
			return nil, errors.NewParseError(lineNo+1, "item %d has an empty description", num)
		}

		wo, err := order.New(num-1, desc, deps)
		if err != nil {
			return nil, err
		}
		orders = append(orders, wo)
		next++
	}

	if len(orders) == 0 {
		return nil, errors.ErrEmptyBreakdown
	}
	return orders, nil
}

// parseDeps converts a comma-separated 1-based dependency list to 0-based
// indices, rejecting forward and self references.
func parseDeps(list string, itemNum, lineNo int) ([]int, error) {
	var deps []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ref, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.NewParseError(lineNo, "invalid dependency reference %q", part)
		}
		if ref < 1 || ref >= itemNum {
			return nil, errors.NewParseError(lineNo,
				"item %d depends on %d, which is not an earlier item", itemNum, ref)
		}
		if !seen[ref-1] {
			seen[ref-1] = true
			deps = append(deps, ref-1)
		}
	}
	return deps, nil
}

// BuildLayers performs a Kahn-style topological sort, grouping work orders
// into layers of mutually independent orders whose dependencies are all
// satisfied by prior layers. Order within a layer follows the insertion
// order of the source list, so layering is deterministic.
//
// Returns a CycleError naming the stuck indices if no progress can be made
// while work orders remain unplaced.
func BuildLayers(orders []*order.WorkOrder) ([][]*order.WorkOrder, error) {
	return BuildLayersFrom(orders, nil)
}

// BuildLayersFrom layers only the work orders not already in the done set,
// treating done indices as satisfied dependencies. This is how the Kaizen
// loop rebuilds layers restricted to outstanding work.
func BuildLayersFrom(orders []*order.WorkOrder, done map[int]bool) ([][]*order.WorkOrder, error) {
	placed := make(map[int]bool, len(done))
	for idx := range done {
		if done[idx] {
			placed[idx] = true
		}
	}

	remaining := 0
	for _, wo := range orders {
		if !placed[wo.Index] {
			remaining++
		}
	}

	var layers [][]*order.WorkOrder
	for remaining > 0 {
		var layer []*order.WorkOrder
		for _, wo := range orders {
			if placed[wo.Index] {
				continue
			}
			if wo.ReadyGiven(placed) {
				layer = append(layer, wo)
			}
		}

		if len(layer) == 0 {
			var stuck []int
			for _, wo := range orders {
				if !placed[wo.Index] {
					stuck = append(stuck, wo.Index)
				}
			}
			return nil, errors.NewCycleError(stuck)
		}

		for _, wo := range layer {
			placed[wo.Index] = true
		}
		remaining -= len(layer)
		layers = append(layers, layer)
	}
	return layers, nil
}

// MatchCapabilities reports whether the available capability map satisfies
// the requirements. A requirement of the form map with a "min" key is a
// numeric threshold; anything else is an equality check. A missing key
// never matches.
func MatchCapabilities(required, available map[string]any) bool {
	for key, req := range required {
		avail, ok := available[key]
		if !ok {
			return false
		}
		if minReq, ok := minThreshold(req); ok {
			have, ok := asFloat(avail)
			if !ok || have < minReq {
				return false
			}
			continue
		}
		if avail != req {
			return false
		}
	}
	return true
}

func minThreshold(req any) (float64, bool) {
	m, ok := req.(map[string]any)
	if !ok {
		return 0, false
	}
	v, ok := m["min"]
	if !ok {
		return 0, false
	}
	return asFloat(v)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
