// Package reconcile merges raw rows from every source into one canonical record per student.
package reconcile

import (
	"sort"

	"github.com/okian/scholar/internal/domain/model"
)

// Dataset is the canonical record set. It is never mutated after publication.
type Dataset struct {
	Records  []model.StudentRecord `json:"records"` // sorted by ID
	Subjects []string              `json:"subjects"`
	Version  string                `json:"version"`
	Hash     string                `json:"hash"`
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Lookup finds a record by identifier.
func (d *Dataset) Lookup(id string) (model.StudentRecord, bool) {
	if d == nil {
		return model.StudentRecord{}, false
	}
	i := sort.Search(len(d.Records), func(i int) bool { return d.Records[i].ID >= id })
	if i < len(d.Records) && d.Records[i].ID == id {
		return d.Records[i], true
	}
	return model.StudentRecord{}, false
}

// Filter returns the records of one department, or all records when
// department is empty. The result is a fresh slice.
func (d *Dataset) Filter(department string) []model.StudentRecord {
	if d == nil {
		return nil
	}
	out := make([]model.StudentRecord, 0, len(d.Records))
	for _, r := range d.Records {
		if department == "" || r.Department == department {
			out = append(out, r)
		}
	}
	return out
}

// Departments lists distinct non-empty departments in ascending order.
func (d *Dataset) Departments() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, r := range d.Records {
		if r.Department != "" {
			seen[r.Department] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for dep := range seen {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}
