package export

import (
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/casimage-etl/internal/mapping"
)

// WriteMapping persists the schema-mapping document as indented JSON.
func WriteMapping(m *mapping.Mapping, path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "export: write %s", path)
}
