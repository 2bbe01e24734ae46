package gallery

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAll_FixedOrder(t *testing.T) {
	got := All()
	want := []Template{
		{ID: 1, Name: "Instagram Square", Thumbnail: "/placeholder.svg", Dimensions: "1080 x 1080"},
		{ID: 2, Name: "Story Template", Thumbnail: "/placeholder.svg", Dimensions: "1080 x 1920"},
		{ID: 3, Name: "Facebook Post", Thumbnail: "/placeholder.svg", Dimensions: "1200 x 630"},
		{ID: 4, Name: "Twitter Post", Thumbnail: "/placeholder.svg", Dimensions: "1200 x 675"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("gallery mismatch (-want +got):\n%s", diff)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	got := All()
	got[0].Name = "mutated"
	if All()[0].Name != "Instagram Square" {
		t.Fatalf("All should return an independent copy")
	}
}

func TestLookup(t *testing.T) {
	tpl, err := Lookup(2)
	if err != nil {
		t.Fatalf("Lookup(2) returned error: %v", err)
	}
	if tpl.Name != "Story Template" || tpl.Dimensions != "1080 x 1920" {
		t.Fatalf("Lookup(2) = %#v", tpl)
	}
	if _, err := Lookup(99); err == nil {
		t.Fatalf("Lookup(99) returned nil error, want error")
	}
}
