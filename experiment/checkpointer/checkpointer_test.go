package checkpointer

import (
	"errors"
	"testing"
)

// recorder records the filenames it is saved to
type recorder struct {
	saved []string
	err   error
}

func (r *recorder) Save(filename string) error {
	r.saved = append(r.saved, filename)
	return r.err
}

func TestNStep(t *testing.T) {
	r := &recorder{}
	c, err := NewNStep(3, r, FilenameEnumerator(0, "history-", ".json"))
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 7; i++ {
		if err := c.Checkpoint(i); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"history-1.json", "history-2.json"}
	if len(r.saved) != len(want) {
		t.Fatalf("saved\n\twant(%v)\n\thave(%v)", want, r.saved)
	}
	for i := range want {
		if r.saved[i] != want[i] {
			t.Errorf("save %v\n\twant(%v)\n\thave(%v)", i, want[i],
				r.saved[i])
		}
	}
}

func TestNStepFixed(t *testing.T) {
	r := &recorder{}
	c, err := NewNStep(1, r, Fixed("run.json"))
	if err != nil {
		t.Fatal(err)
	}
	c.Checkpoint(1)
	c.Checkpoint(2)
	if len(r.saved) != 2 || r.saved[0] != "run.json" || r.saved[1] != "run.json" {
		t.Errorf("saved\n\twant([run.json run.json])\n\thave(%v)", r.saved)
	}

	r.err = errors.New("disk full")
	if err := c.Checkpoint(3); err == nil {
		t.Error("expected save error to be returned")
	}

	if _, err := NewNStep(0, r, Fixed("run.json")); err == nil {
		t.Error("expected error for zero interval")
	}
}
