package store

import "testing"

func TestDecodeScreenshots(t *testing.T) {
	var shots []string
	if err := decodeScreenshots(nil, &shots); err != nil || shots != nil {
		t.Fatalf("expected nil for NULL column, got %v, %v", shots, err)
	}
	if err := decodeScreenshots([]byte(`["a.png","b.png"]`), &shots); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(shots) != 2 || shots[1] != "b.png" {
		t.Fatalf("unexpected screenshots %v", shots)
	}
	var bad []string
	if err := decodeScreenshots([]byte(`{"not":"a list"}`), &bad); err == nil {
		t.Fatal("expected error for corrupt screenshots column")
	}
}
