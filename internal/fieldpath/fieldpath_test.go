package fieldpath

import "testing"

func TestGetNavigatesNestedPath(t *testing.T) {
	tree := map[string]any{"data": map[string]any{"src_ip": "10.0.0.1"}}
	v, ok := Get(tree, "data.src_ip")
	if !ok || v != "10.0.0.1" {
		t.Errorf("Get() = (%v, %v), want (10.0.0.1, true)", v, ok)
	}
}

func TestGetMissingSegmentIsNoMatch(t *testing.T) {
	tree := map[string]any{"data": map[string]any{"src_ip": "10.0.0.1"}}
	if _, ok := Get(tree, "data.dest_ip"); ok {
		t.Error("Get() matched a missing segment")
	}
}

func TestGetDeadEndOnNonMapValue(t *testing.T) {
	tree := map[string]any{"data": "not-a-map"}
	if _, ok := Get(tree, "data.src_ip"); ok {
		t.Error("Get() navigated through a non-map value")
	}
}
