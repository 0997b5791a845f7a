package report

import "time"

const isoDate = "2006-01-02"

const (
	ContentTypePDF = "application/pdf"
	ContentTypeCSV = "text/csv; charset=utf-8"
)

func FamilyFilename(code string) string {
	return "familia-" + code + ".pdf"
}

func VisitsFilename(start, end string) string {
	return "relatorio-visitas-" + start + "-" + end + ".pdf"
}

func StatisticsFilename(today time.Time) string {
	return "relatorio-estatistico-" + today.Format(isoDate) + ".pdf"
}

func FamiliesPDFFilename(today time.Time) string {
	return "familias-" + today.Format(isoDate) + ".pdf"
}

func FamiliesCSVFilename(today time.Time) string {
	return "familias-" + today.Format(isoDate) + ".csv"
}
