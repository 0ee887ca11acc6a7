package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingManifest(t *testing.T) {
	t.Parallel()

	m, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Documents == nil || len(m.Documents) != 0 {
		t.Errorf("Documents = %v, want empty map", m.Documents)
	}
}

func TestUpdateThenLoad(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")
	want := &Manifest{
		LastUpdated: "Mon, 06 Jan 2025 09:00:00 GMT",
		Documents: map[string]Document{
			"abc": {ID: "abc", Title: "Exam timetable", Content: "Anatomy exam on June 3", Department: "Nursing", Year: "3"},
		},
	}
	if err := Update(dir, want); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadCorruptManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifestName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDocumentMetadata(t *testing.T) {
	t.Parallel()

	d := Document{Title: "Timetable", Link: "https://uni.example/t", Department: "Nursing", Semester: "1"}
	want := map[string]string{"title": "Timetable", "link": "https://uni.example/t", "Department": "Nursing", "Semester": "1"}
	if got := d.Metadata(); !reflect.DeepEqual(got, want) {
		t.Errorf("Metadata() = %v, want %v", got, want)
	}
}
