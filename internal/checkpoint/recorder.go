package checkpoint

// Recorder is an in-memory Service double that records Create calls.
// Dirty and Err control what the engine observes.
type Recorder struct {
	Dirty   bool
	Err     error // returned by Create when set
	Created []Checkpoint
}

func (r *Recorder) TreeDirty() (bool, error) { return r.Dirty, nil }

func (r *Recorder) Create(id, name string) error {
	if r.Err != nil {
		return r.Err
	}
	r.Created = append(r.Created, Checkpoint{Name: name})
	return nil
}

func (r *Recorder) List(id string) ([]Checkpoint, error) {
	var out []Checkpoint
	for _, cp := range r.Created {
		if len(cp.Name) >= len(id) && cp.Name[:len(id)] == id {
			out = append(out, cp)
		}
	}
	return out, nil
}
