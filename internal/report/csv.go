package report

import (
	"bytes"
	"encoding/csv"
)

var csvHeader = []string{"Código", "Nome", "Status", "Urgência", "Data Cadastro"}

// FamiliesCSV writes the family export as CSV. Fields holding commas,
// quotes or newlines are quoted.
func (c Composer) FamiliesCSV(rows []FamilyExportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Code, r.Name, r.Status, r.Urgency, c.date(r.RegisteredOn)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
