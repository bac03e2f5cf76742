package storage

import (
	"os"
	"path/filepath"
	"testing"
)

type slotFile struct {
	Slot  int    `json:"slot"`
	Title string `json:"title"`
}

func TestSaveJSON_LoadJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "saves", "slot-1.json")
	want := slotFile{Slot: 1, Title: "Kabanata 1"}

	if err := SaveJSON(path, want); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}

	var got slotFile
	if err := LoadJSON(path, &got); err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	if got != want {
		t.Errorf("LoadJSON() = %+v, want %+v", got, want)
	}

	if _, err := os.Stat(path + ".tmp"); err == nil {
		t.Error("temp file left behind after SaveJSON")
	}
}

func TestLoadJSON_Missing(t *testing.T) {
	t.Parallel()

	var got slotFile
	err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"), &got)
	if !os.IsNotExist(err) {
		t.Fatalf("LoadJSON() error = %v, want not-exist", err)
	}
}

func TestLoadJSON_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{slot:"), 0o600); err != nil {
		t.Fatal(err)
	}

	var got slotFile
	if err := LoadJSON(path, &got); err == nil {
		t.Fatal("LoadJSON() expected error for corrupt file")
	}
}

func TestSaveJSON_Unmarshalable(t *testing.T) {
	t.Parallel()

	if err := SaveJSON(filepath.Join(t.TempDir(), "bad.json"), func() {}); err == nil {
		t.Fatal("SaveJSON() expected error for func value")
	}
}

func TestDataDir_Override(t *testing.T) {
	t.Parallel()

	want := filepath.Join(t.TempDir(), "nested", "data")
	got, err := DataDir(want)
	if err != nil {
		t.Fatalf("DataDir() error = %v", err)
	}
	if got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}
	info, err := os.Stat(got)
	if err != nil || !info.IsDir() {
		t.Fatalf("DataDir() did not create directory: %v", err)
	}
}

func TestExpandHome(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{in: "~", want: home},
		{in: "~/games", want: filepath.Join(home, "games")},
		{in: "/abs/path", want: "/abs/path"},
		{in: "relative", want: "relative"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ExpandHome(tt.in)
			if err != nil {
				t.Fatalf("ExpandHome(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gone.json")
	if err := Remove(path); err != nil {
		t.Fatalf("Remove() on missing file error = %v", err)
	}

	if err := SaveJSON(path, slotFile{Slot: 2}); err != nil {
		t.Fatal(err)
	}
	if err := Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove()")
	}
}
