package application

import (
	"github.com/ahrav/go-aipi/infrastructure/export"
)

// MetaDocument returns the snapshot's meta document. A published meta
// document wins; otherwise one is derived from the index, stamped with the
// snapshot's load time.
func (s *Snapshot) MetaDocument() (export.Meta, error) {
	if len(s.Meta) > 0 {
		return export.ParseMeta(s.Meta)
	}
	m := export.BuildMeta(nil, s.Index.Rows(), s.LoadedAt)
	m.DatasetHash = s.DatasetHash
	return m, nil
}
