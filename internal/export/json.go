package export

import (
	"encoding/json"
	"io"

	"github.com/user/thinkchat/internal/types"
)

// JSONExporter writes pretty-printed JSON.
type JSONExporter struct{}

func (e *JSONExporter) Export(id types.SessionID, session *types.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(id, session))
}

func (e *JSONExporter) Extension() string {
	return "json"
}
