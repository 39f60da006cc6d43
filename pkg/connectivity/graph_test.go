package connectivity

import (
	"context"
	"errors"
	"testing"
)

func loadFixture(t *testing.T) *Graph {
	t.Helper()
	g, err := NewDirSource("testdata").LoadGraph(context.Background(), "testscan")
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	return g
}

func TestDirSource_LoadGraph(t *testing.T) {
	g := loadFixture(t)

	if g.ScanID() != "testscan" {
		t.Errorf("ScanID: got %q", g.ScanID())
	}
	if g.Len() != 5 {
		t.Fatalf("Len: got %d, want 5", g.Len())
	}

	// Graph order follows file order
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		if g.At(i).ID != id || g.At(i).Index != i {
			t.Errorf("At(%d): got %+v, want id %s", i, g.At(i), id)
		}
	}

	pos, err := g.PositionOf("c")
	if err != nil {
		t.Fatalf("PositionOf: %v", err)
	}
	if pos.X != 1.0 || pos.Y != 0 || pos.Z != 1.4 {
		t.Errorf("PositionOf(c): got %+v", pos)
	}
}

func TestGraph_SelfAlwaysUnobstructed(t *testing.T) {
	g := loadFixture(t)

	// The fixture marks a->a as obstructed on purpose
	for _, vp := range g.Viewpoints() {
		if !g.IsUnobstructed(vp.ID, vp.ID) {
			t.Errorf("IsUnobstructed(%s, %s) = false", vp.ID, vp.ID)
		}
	}
}

func TestGraph_Queries(t *testing.T) {
	g := loadFixture(t)

	if !g.IsUnobstructed("a", "b") {
		t.Error("a->b should be unobstructed")
	}
	if g.IsUnobstructed("a", "e") {
		t.Error("a->e should be obstructed")
	}
	if g.IsUnobstructed("a", "zzz") || g.IsUnobstructed("zzz", "a") {
		t.Error("unknown ids should be obstructed")
	}
	if g.IsIncluded("d") {
		t.Error("d should be excluded")
	}
	if !g.IsIncluded("a") {
		t.Error("a should be included")
	}
	if g.IsIncluded("zzz") {
		t.Error("unknown id should not be included")
	}

	got := g.IncludedIndices()
	want := []int{0, 1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("IncludedIndices: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IncludedIndices: got %v, want %v", got, want)
		}
	}
}

func TestGraph_UnknownViewpoint(t *testing.T) {
	g := loadFixture(t)

	if _, err := g.PositionOf("nope"); !errors.Is(err, ErrUnknownViewpoint) {
		t.Errorf("PositionOf: got %v, want ErrUnknownViewpoint", err)
	}
	if _, err := g.Lookup("nope"); !errors.Is(err, ErrUnknownViewpoint) {
		t.Errorf("Lookup: got %v, want ErrUnknownViewpoint", err)
	}
	if _, ok := g.Index("nope"); ok {
		t.Error("Index should miss")
	}
}

func TestGraph_ViewpointsIsCopy(t *testing.T) {
	g := loadFixture(t)

	vps := g.Viewpoints()
	vps[0].ID = "mutated"
	if g.At(0).ID != "a" {
		t.Error("mutating Viewpoints() result changed the graph")
	}
}

func TestNewGraph_Malformed(t *testing.T) {
	pose := []float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	tests := []struct {
		name    string
		records []Record
	}{
		{"missing id", []Record{{Pose: pose, Unobstructed: []bool{true}}}},
		{"short pose", []Record{{ImageID: "a", Pose: pose[:3], Unobstructed: []bool{true}}}},
		{"flag count", []Record{{ImageID: "a", Pose: pose, Unobstructed: []bool{true, true}}}},
		{"duplicate", []Record{
			{ImageID: "a", Pose: pose, Unobstructed: []bool{true, true}},
			{ImageID: "a", Pose: pose, Unobstructed: []bool{true, true}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGraph("s", tt.records); !errors.Is(err, ErrIOFailure) {
				t.Errorf("got %v, want ErrIOFailure", err)
			}
		})
	}
}

func TestDirSource_Failures(t *testing.T) {
	src := NewDirSource("testdata")
	ctx := context.Background()

	if _, err := src.LoadGraph(ctx, "broken"); !errors.Is(err, ErrIOFailure) {
		t.Errorf("broken: got %v, want ErrIOFailure", err)
	}
	if _, err := src.LoadGraph(ctx, "missing"); !errors.Is(err, ErrIOFailure) {
		t.Errorf("missing: got %v, want ErrIOFailure", err)
	}
	if _, err := src.LoadGraph(ctx, "../testdata/testscan"); !errors.Is(err, ErrIOFailure) {
		t.Errorf("traversal: got %v, want ErrIOFailure", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := src.LoadGraph(cancelled, "testscan"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: got %v, want context.Canceled", err)
	}
}

func TestDirSource_ScanIDs(t *testing.T) {
	ids, err := NewDirSource("testdata").ScanIDs()
	if err != nil {
		t.Fatalf("ScanIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "testscan" || ids[1] != "broken" {
		t.Errorf("ScanIDs: got %v", ids)
	}

	if _, err := NewDirSource(t.TempDir()).ScanIDs(); !errors.Is(err, ErrIOFailure) {
		t.Errorf("missing scans.txt: got %v, want ErrIOFailure", err)
	}
}

func TestGraph_RecordsRoundTrip(t *testing.T) {
	g := loadFixture(t)

	rebuilt, err := NewGraph(g.ScanID(), g.Records())
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	for i := 0; i < g.Len(); i++ {
		if rebuilt.At(i) != g.At(i) {
			t.Errorf("viewpoint %d: got %+v, want %+v", i, rebuilt.At(i), g.At(i))
		}
		for j := 0; j < g.Len(); j++ {
			if rebuilt.UnobstructedAt(i, j) != g.UnobstructedAt(i, j) {
				t.Errorf("unobstructed %d->%d differs", i, j)
			}
		}
	}
}
