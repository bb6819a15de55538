// Package checkpointer periodically saves objects during training
package checkpointer

import "fmt"

// Serializable is an object that can save itself to a file
type Serializable interface {
	Save(filename string) error
}

// Checkpointer checkpoints objects based on the training iteration
type Checkpointer interface {
	Checkpoint(iteration int) error
}

// nStep implements checkpointing every N iterations
type nStep struct {
	interval int
	object   Serializable

	// filename returns the name of the file to save the object in.
	//
	// If each checkpoint should be saved in a separate file with an
	// incremented suffix (e.g. file1.json, ..., fileK.json), use
	// FilenameEnumerator. To overwrite a single file, use Fixed.
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n iterations
func NewNStep(n int, object Serializable,
	filename func() string) (Checkpointer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("newNStep: interval must be positive"+
			"\n\thave(%v)", n)
	}
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the tracked object if iteration is a multiple of
// the interval
func (n *nStep) Checkpoint(iteration int) error {
	if iteration%n.interval != 0 {
		return nil
	}
	if err := n.object.Save(n.filename()); err != nil {
		return fmt.Errorf("checkpoint: iteration %v: %v", iteration, err)
	}
	return nil
}
