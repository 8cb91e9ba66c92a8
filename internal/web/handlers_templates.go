package web

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/fastro/internal/core"
)

// templateHeader lists the import columns of a table: its fields in order,
// without the backend-assigned id.
func templateHeader(def core.TableDefinition) []string {
	cols := def.Columns()
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == core.IDField {
			continue
		}
		out = append(out, c)
	}
	return out
}

// handleDownloadTemplate returns a CSV template with headers for a table.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	def := definition(r)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_template.csv"`, def.Info.Key))

	csvWriter := csv.NewWriter(w)
	csvWriter.Write(templateHeader(def))
	csvWriter.Flush()
}
