package manifest

import (
	"fmt"

	"github.com/dxos/version-check/internal/models"
)

// MalformedError is returned when a manifest is not valid JSON or a known
// field has the wrong shape.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed manifest %s: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// rewritable lists the sections a version change applies to.
var rewritable = []string{models.SectionDependencies, models.SectionDevDependencies}

// ChangeVersion sets dep to spec wherever it appears in the dependencies or
// devDependencies of the manifest at path. The file is only written when
// something changed.
func ChangeVersion(path, dep, spec string) (bool, error) {
	b := NewBatch()
	b.Add(path, dep, spec)
	changed, err := b.Apply()
	return len(changed) > 0, err
}

type edit struct {
	dep  string
	spec string
}

// Batch collects version changes for several manifests so that each file is
// read and written once, however many of its dependencies change.
type Batch struct {
	order []string
	edits map[string][]edit
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{edits: make(map[string][]edit)}
}

// Add queues setting dep to spec in the manifest at path.
func (b *Batch) Add(path, dep, spec string) {
	if _, ok := b.edits[path]; !ok {
		b.order = append(b.order, path)
	}
	b.edits[path] = append(b.edits[path], edit{dep: dep, spec: spec})
}

// Len returns the number of queued edits.
func (b *Batch) Len() int {
	n := 0
	for _, e := range b.edits {
		n += len(e)
	}
	return n
}

// Apply performs the queued edits and returns the files that were rewritten,
// in the order they were first added.
func (b *Batch) Apply() ([]string, error) {
	var changed []string
	for _, path := range b.order {
		m, err := Load(path)
		if err != nil {
			return changed, err
		}

		dirty := false
		for _, e := range b.edits[path] {
			for _, section := range rewritable {
				if m.Set(section, e.dep, e.spec) {
					dirty = true
				}
			}
		}
		if !dirty {
			continue
		}

		if err := Save(path, m); err != nil {
			return changed, fmt.Errorf("writing %s: %w", path, err)
		}
		changed = append(changed, path)
	}
	return changed, nil
}
