package blacklist

import (
	"os"
	"path/filepath"
	"testing"

	"homebase/internal/phone"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "blacklist.txt"))
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	st := tempStore(t)
	set, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("expected empty set, got %d entries", len(set))
	}
}

func TestRoundTrip(t *testing.T) {
	st := tempStore(t)

	sets := []Set{
		{},
		{"994501234567": {}},
		{"994501234567": {}, "994551112233": {}, "905301234567": {}},
	}
	for _, want := range sets {
		if err := st.Save(want); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := st.Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("round trip: got %d entries, want %d", len(got), len(want))
		}
		for n := range want {
			if !got.Contains(n) {
				t.Errorf("round trip lost %s", n)
			}
		}
	}
}

func TestSave_SortedAndDeduplicated(t *testing.T) {
	st := tempStore(t)
	set := Set{}
	set.Add("994771234567")
	set.Add("994501234567")
	set.Add("994501234567") // duplicate add is a no-op

	if err := st.Save(set); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(st.Path())
	if err != nil {
		t.Fatal(err)
	}
	want := "994501234567\n994771234567\n"
	if string(data) != want {
		t.Fatalf("file content = %q, want %q", data, want)
	}
}

func TestLoad_SkipsGarbageLines(t *testing.T) {
	st := tempStore(t)
	content := "994501234567\n\nnot-a-number\n0551234567\n"
	if err := os.WriteFile(st.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	set, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !set.Contains("994501234567") {
		t.Error("missing canonical entry")
	}
	if !set.Contains(phone.Number("994551234567")) {
		t.Error("local-form line should be normalized on load")
	}
	if len(set) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(set))
	}
}
