package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/user/thinkchat/internal/types"
)

type YAMLExporter struct{}

func (e *YAMLExporter) Export(id types.SessionID, session *types.Session, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	return enc.Encode(NewDocument(id, session))
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
