package routing

import (
	"testing"

	"github.com/kaizengine/shopfloor/internal/errors"
	"github.com/kaizengine/shopfloor/internal/order"
)

const exampleBreakdown = `1. Create project scaffold
2. Implement fibonacci logic (depends: 1)
3. Set up testing framework (depends: 1)
4. Write and run tests (depends: 2, 3)`

func TestParseWorkOrders_Example(t *testing.T) {
	orders, err := ParseWorkOrders(exampleBreakdown)
	if err != nil {
		t.Fatalf("ParseWorkOrders failed: %v", err)
	}

	if len(orders) != 4 {
		t.Fatalf("expected 4 work orders, got %d", len(orders))
	}

	// 1-based references in the text, 0-based indices internally.
	wantDeps := [][]int{{}, {0}, {0}, {1, 2}}
	for i, wo := range orders {
		if wo.Index != i {
			t.Errorf("order %d: index = %d, want %d", i, wo.Index, i)
		}
		if len(wo.DependsOn) != len(wantDeps[i]) {
			t.Errorf("order %d: deps = %v, want %v", i, wo.DependsOn, wantDeps[i])
			continue
		}
		for j, dep := range wantDeps[i] {
			if wo.DependsOn[j] != dep {
				t.Errorf("order %d: deps = %v, want %v", i, wo.DependsOn, wantDeps[i])
			}
		}
	}

	if orders[1].Description != "Implement fibonacci logic" {
		t.Errorf("dependency annotation should be stripped, got %q", orders[1].Description)
	}
}

func TestParseWorkOrders_MalformedLine(t *testing.T) {
	_, err := ParseWorkOrders("1. First\nnot a numbered line\n")
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 2 {
		t.Errorf("Line = %d, want 2", pe.Line)
	}
}

func TestParseWorkOrders_NonSequentialNumbering(t *testing.T) {
	_, err := ParseWorkOrders("1. First\n3. Third\n")
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseWorkOrders_ForwardReference(t *testing.T) {
	_, err := ParseWorkOrders("1. First (depends: 2)\n2. Second\n")
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError for forward reference, got %v", err)
	}
}

func TestParseWorkOrders_SelfReference(t *testing.T) {
	_, err := ParseWorkOrders("1. First\n2. Second (depends: 2)\n")
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError for self reference, got %v", err)
	}
}

func TestParseWorkOrders_Empty(t *testing.T) {
	for _, text := range []string{"", "\n\n   \n"} {
		_, err := ParseWorkOrders(text)
		if !errors.Is(err, errors.ErrEmptyBreakdown) {
			t.Errorf("ParseWorkOrders(%q) = %v, want ErrEmptyBreakdown", text, err)
		}
	}
}

func TestParseWorkOrders_DuplicateDeps(t *testing.T) {
	orders, err := ParseWorkOrders("1. First\n2. Second (depends: 1, 1)\n")
	if err != nil {
		t.Fatalf("ParseWorkOrders failed: %v", err)
	}
	if len(orders[1].DependsOn) != 1 {
		t.Errorf("duplicate deps should collapse, got %v", orders[1].DependsOn)
	}
}

func TestBuildLayers_Example(t *testing.T) {
	orders, err := ParseWorkOrders(exampleBreakdown)
	if err != nil {
		t.Fatalf("ParseWorkOrders failed: %v", err)
	}

	layers, err := BuildLayers(orders)
	if err != nil {
		t.Fatalf("BuildLayers failed: %v", err)
	}

	want := [][]int{{0}, {1, 2}, {3}}
	if len(layers) != len(want) {
		t.Fatalf("expected %d layers, got %d", len(want), len(layers))
	}
	for i, layer := range layers {
		if len(layer) != len(want[i]) {
			t.Fatalf("layer %d: size = %d, want %d", i, len(layer), len(want[i]))
		}
		for j, wo := range layer {
			if wo.Index != want[i][j] {
				t.Errorf("layer %d: indices mismatch, got WO-%d want WO-%d", i, wo.Index, want[i][j])
			}
		}
	}
}

func TestBuildLayers_EveryOrderPlacedOnce(t *testing.T) {
	orders, _ := ParseWorkOrders(exampleBreakdown)
	layers, err := BuildLayers(orders)
	if err != nil {
		t.Fatalf("BuildLayers failed: %v", err)
	}

	seen := make(map[int]int)
	for layerIdx, layer := range layers {
		for _, wo := range layer {
			seen[wo.Index]++
			// every dependency must live in a strictly earlier layer
			for _, dep := range wo.DependsOn {
				depLayer := -1
				for li, l := range layers {
					for _, other := range l {
						if other.Index == dep {
							depLayer = li
						}
					}
				}
				if depLayer < 0 || depLayer >= layerIdx {
					t.Errorf("WO-%d in layer %d has dep WO-%d in layer %d", wo.Index, layerIdx, dep, depLayer)
				}
			}
		}
	}
	for _, wo := range orders {
		if seen[wo.Index] != 1 {
			t.Errorf("WO-%d placed %d times, want exactly once", wo.Index, seen[wo.Index])
		}
	}
}

func TestBuildLayers_Cycle(t *testing.T) {
	a := &order.WorkOrder{Index: 0, Description: "a", DependsOn: []int{1}}
	b := &order.WorkOrder{Index: 1, Description: "b", DependsOn: []int{0}}

	_, err := BuildLayers([]*order.WorkOrder{a, b})
	var ce *errors.CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if len(ce.Stuck) != 2 {
		t.Errorf("Stuck = %v, want both indices", ce.Stuck)
	}
}

func TestBuildLayersFrom_RestrictedToOutstanding(t *testing.T) {
	orders, _ := ParseWorkOrders(exampleBreakdown)

	// WO-0 and WO-1 are done; only WO-2 and WO-3 should be layered.
	layers, err := BuildLayersFrom(orders, map[int]bool{0: true, 1: true})
	if err != nil {
		t.Fatalf("BuildLayersFrom failed: %v", err)
	}
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if layers[0][0].Index != 2 || layers[1][0].Index != 3 {
		t.Errorf("layers = %v, want [[2], [3]]", layers)
	}
}

func TestMatchCapabilities(t *testing.T) {
	available := map[string]any{
		"gpu":            false,
		"context_window": 200000,
		"language":       "go",
	}

	tests := []struct {
		name     string
		required map[string]any
		want     bool
	}{
		{"empty requirements", map[string]any{}, true},
		{"exact match", map[string]any{"language": "go"}, true},
		{"mismatch", map[string]any{"gpu": true}, false},
		{"missing key", map[string]any{"tmux": true}, false},
		{"min satisfied", map[string]any{"context_window": map[string]any{"min": 100000}}, true},
		{"min unsatisfied", map[string]any{"context_window": map[string]any{"min": 500000}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchCapabilities(tt.required, available); got != tt.want {
				t.Errorf("MatchCapabilities() = %v, want %v", got, tt.want)
			}
		})
	}
}
