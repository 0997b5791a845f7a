package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"casework/internal/domain"
	"casework/internal/events"
	"casework/internal/report"
	"casework/internal/repo"
)

const notInformed = "Não informado"

// Document is a generated report ready for download.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

func (e Engine) composer() report.Composer {
	c := report.NewComposer(e.config())
	c.Now = e.now
	return c
}

func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func orNotInformed(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return notInformed
	}
	return strings.TrimSpace(*s)
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (e Engine) exportRows(ctx context.Context) ([]report.FamilyExportRow, error) {
	families, err := e.Repo.ListFamilies(ctx, repo.FamilyFilters{})
	if err != nil {
		return nil, err
	}
	rows := make([]report.FamilyExportRow, 0, len(families))
	for _, f := range families {
		rows = append(rows, report.FamilyExportRow{
			Code:         f.PublicCode,
			Name:         f.ResponsibleName,
			Status:       StatusLabel(f.Status),
			Urgency:      StatusLabel(f.UrgencyLevel),
			RegisteredOn: parseStamp(f.CreatedAt),
		})
	}
	return rows, nil
}

// ExportFamiliesPDF renders every registered family as a table.
func (e Engine) ExportFamiliesPDF(ctx context.Context, actorID string) (Document, error) {
	rows, err := e.exportRows(ctx)
	if err != nil {
		return Document{}, err
	}
	body, err := e.composer().FamilyExport(rows)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Filename: report.FamiliesPDFFilename(e.now()), ContentType: report.ContentTypePDF, Body: body}
	return doc, e.finishExport(ctx, doc, "families", "", actorID, len(rows))
}

func (e Engine) ExportFamiliesCSV(ctx context.Context, actorID string) (Document, error) {
	rows, err := e.exportRows(ctx)
	if err != nil {
		return Document{}, err
	}
	body, err := e.composer().FamiliesCSV(rows)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Filename: report.FamiliesCSVFilename(e.now()), ContentType: report.ContentTypeCSV, Body: body}
	return doc, e.finishExport(ctx, doc, "families", "", actorID, len(rows))
}

// ExportVisits renders visits scheduled from start to end, both days included.
func (e Engine) ExportVisits(ctx context.Context, start, end time.Time, actorID string) (Document, error) {
	if end.Before(start) {
		return Document{}, InvalidValueError{Field: "end", Value: end.Format("2006-01-02")}
	}
	visits, err := e.VisitsBetween(ctx, start, end)
	if err != nil {
		return Document{}, err
	}
	rows := make([]report.VisitReportRow, 0, len(visits))
	for _, v := range visits {
		row := report.VisitReportRow{
			ScheduledDate: parseStamp(v.ScheduledAt),
			Status:        StatusLabel(v.Status),
			Type:          StatusLabel(v.VisitType),
		}
		if v.Family != nil {
			row.FamilyCode = v.Family.PublicCode
			row.FamilyName = v.Family.ResponsibleName
		}
		rows = append(rows, row)
	}
	c := e.composer()
	from, to := start.Format("2006-01-02"), end.Format("2006-01-02")
	body, err := c.VisitsReport(rows, start.Format(c.DateLayout), end.Format(c.DateLayout))
	if err != nil {
		return Document{}, err
	}
	doc := Document{Filename: report.VisitsFilename(from, to), ContentType: report.ContentTypePDF, Body: body}
	return doc, e.finishExport(ctx, doc, "visits", "", actorID, len(rows))
}

func (e Engine) ExportStatistics(ctx context.Context, actorID string) (Document, error) {
	snap, err := e.StatisticsSnapshot(ctx)
	if err != nil {
		return Document{}, err
	}
	body, err := e.composer().StatisticsReport(snap)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Filename: report.StatisticsFilename(e.now()), ContentType: report.ContentTypePDF, Body: body}
	return doc, e.finishExport(ctx, doc, "statistics", "", actorID, snap.TotalFamilies)
}

// ExportFamily renders the registration sheet of one family, looked up by
// id or public code.
func (e Engine) ExportFamily(ctx context.Context, id, actorID string) (Document, error) {
	d, err := e.GetFamily(ctx, id)
	if err != nil {
		return Document{}, err
	}
	body, err := e.composer().FamilyDetail(FamilyDetailFrom(d))
	if err != nil {
		return Document{}, err
	}
	doc := Document{Filename: report.FamilyFilename(d.PublicCode), ContentType: report.ContentTypePDF, Body: body}
	return doc, e.finishExport(ctx, doc, "family", d.ID, actorID, len(d.Members))
}

// FamilyDetailFrom flattens a stored family into the registration sheet.
func FamilyDetailFrom(d domain.FamilyDetails) report.FamilyDetail {
	address := strings.TrimSpace(d.Street)
	if d.AddressNumber != nil && strings.TrimSpace(*d.AddressNumber) != "" {
		address += ", " + strings.TrimSpace(*d.AddressNumber)
	}
	if address == "" {
		address = notInformed
	}
	var income float64
	if d.FormalIncome != nil {
		income += *d.FormalIncome
	}
	if d.InformalIncome != nil {
		income += *d.InformalIncome
	}
	out := report.FamilyDetail{
		Code:             d.PublicCode,
		Status:           StatusLabel(d.Status),
		Urgency:          StatusLabel(d.UrgencyLevel),
		RegisteredOn:     parseStamp(d.CreatedAt),
		ResponsibleName:  d.ResponsibleName,
		CPF:              orNotInformed(d.CPF),
		Phone:            orNotInformed(d.Phone),
		Email:            orEmpty(d.Email),
		AddressLine:      address,
		Neighborhood:     d.Neighborhood,
		City:             d.City,
		ZipCode:          orNotInformed(d.ZipCode),
		MonthlyIncome:    income,
		HousingType:      orNotInformed(d.HousingType),
		HousingCondition: orNotInformed(d.ConstructionType),
		Needs:            splitNeeds(d.ImmediateNeeds),
	}
	if d.FinalObservations != nil {
		out.Observations = strings.TrimSpace(*d.FinalObservations)
	}
	for _, m := range d.Members {
		row := report.MemberRow{Name: m.Name, Kinship: m.Kinship, Age: "-", Occupation: "-"}
		if m.Age != nil {
			row.Age = strconv.Itoa(*m.Age)
		}
		if m.Occupation != nil && *m.Occupation != "" {
			row.Occupation = *m.Occupation
		}
		out.Members = append(out.Members, row)
	}
	return out
}

// splitNeeds turns the free-text needs field into list items, one per line
// or comma.
func splitNeeds(s *string) []string {
	if s == nil {
		return nil
	}
	parts := strings.FieldsFunc(*s, func(r rune) bool { return r == '\n' || r == ',' || r == ';' })
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// finishExport records the export and hands a copy to the archive. Archive
// failures do not fail the download.
func (e Engine) finishExport(ctx context.Context, doc Document, kind, entityID, actorID string, count int) error {
	payload := events.EventPayload{"report": kind, "filename": doc.Filename, "count": count, "bytes": len(doc.Body)}
	if e.Archive != nil {
		loc, err := e.Archive.Put(ctx, e.now(), doc.Filename, doc.ContentType, doc.Body)
		if err != nil {
			e.log().Warn("archive report", zap.String("filename", doc.Filename), zap.Error(err))
		} else {
			payload["archived_at"] = loc
		}
	}
	if err := e.Events.Append(ctx, e.DB, events.ReportExported, "report", entityID, actorID, payload); err != nil {
		return err
	}
	e.log().Info("report exported", zap.String("report", kind), zap.String("filename", doc.Filename))
	return nil
}
