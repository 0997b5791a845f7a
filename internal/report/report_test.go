package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/text/language"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type op struct {
	kind string
	page int
	x, y float64
	text string
	fill bool
}

// recorder is a Canvas that keeps every draw call. Each rune is 2mm wide.
type recorder struct {
	pages   int
	current int
	ops     []op
	fail    error
}

func (r *recorder) AddPage()                 { r.pages++; r.current = r.pages }
func (r *recorder) PageCount() int           { return r.pages }
func (r *recorder) SetPage(n int)            { r.current = n }
func (r *recorder) SetFont(string, float64)  {}
func (r *recorder) SetTextColor(_, _, _ int) {}
func (r *recorder) SetFillColor(_, _, _ int) {}

func (r *recorder) Text(x, y float64, s string) {
	r.ops = append(r.ops, op{kind: "text", page: r.current, x: x, y: y, text: s})
}

func (r *recorder) Cell(x, y, w, h float64, s string, border, fill bool, align string) {
	r.ops = append(r.ops, op{kind: "cell", page: r.current, x: x, y: y, text: s, fill: fill})
}

func (r *recorder) StringWidth(s string) float64 {
	return 2 * float64(utf8.RuneCountInString(s))
}

func (r *recorder) Output(w io.Writer) error {
	if r.fail != nil {
		return r.fail
	}
	_, err := io.WriteString(w, "%PDF-recorded")
	return err
}

func (r *recorder) texts() []string {
	var out []string
	for _, o := range r.ops {
		if o.kind == "text" {
			out = append(out, o.text)
		}
	}
	return out
}

func (r *recorder) cells(page int) []op {
	var out []op
	for _, o := range r.ops {
		if o.kind == "cell" && o.page == page {
			out = append(out, o)
		}
	}
	return out
}

func testComposer(rec *recorder) Composer {
	return Composer{
		Organization: "Igreja Esperança - Ministério Compartilhar Esperança",
		Currency:     "R$",
		DateLayout:   "02/01/2006",
		Lang:         language.BrazilianPortuguese,
		NewCanvas:    func() Canvas { return rec },
		Now:          func() time.Time { return time.Date(2024, 12, 3, 10, 0, 0, 0, time.UTC) },
	}
}

func exportRows(n int) []FamilyExportRow {
	rows := make([]FamilyExportRow, n)
	for i := range rows {
		rows[i] = FamilyExportRow{
			Code:         fmt.Sprintf("fam-20241201-%06d", i),
			Name:         fmt.Sprintf("Família %d", i),
			Status:       "Ativa",
			Urgency:      "Média",
			RegisteredOn: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	return rows
}

func TestFamilyExportEmptyHasOnlyHeader(t *testing.T) {
	rec := &recorder{}
	out, err := testComposer(rec).FamilyExport(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, 1, rec.pages)

	cells := rec.cells(1)
	require.Len(t, cells, 4)
	for _, c := range cells {
		assert.True(t, c.fill, "header cells are filled")
	}
	assert.Equal(t, "Código", cells[0].text)
	assert.Contains(t, rec.texts(), "Total de Famílias: 0")
}

func TestFamilyExportPaginatesAndRepeatsHeader(t *testing.T) {
	rec := &recorder{}
	_, err := testComposer(rec).FamilyExport(exportRows(40))
	require.NoError(t, err)
	require.GreaterOrEqual(t, rec.pages, 2)

	body := 0
	for page := 1; page <= rec.pages; page++ {
		cells := rec.cells(page)
		if len(cells) == 0 {
			continue
		}
		top := cells[0]
		for _, c := range cells {
			if c.y < top.y {
				top = c
			}
		}
		assert.True(t, top.fill, "page %d starts with the header row", page)
		assert.Equal(t, "Código", cells[0].text, "page %d", page)
		for _, c := range cells {
			assert.LessOrEqual(t, c.y+rowHeight, pageBottom, "page %d cell below margin", page)
			if !c.fill {
				body++
			}
		}
	}
	assert.Equal(t, 40*4, body)
}

func TestVisitsReportHeader(t *testing.T) {
	rec := &recorder{}
	rows := []VisitReportRow{
		{FamilyCode: "fam-1", FamilyName: "Maria Silva", ScheduledDate: time.Date(2024, 12, 5, 14, 0, 0, 0, time.UTC), Status: "Agendada", Type: "Visita domiciliar"},
		{FamilyCode: "fam-2", FamilyName: "João Santos", ScheduledDate: time.Date(2024, 12, 9, 9, 0, 0, 0, time.UTC), Status: "Concluída", Type: "Ligação"},
	}
	_, err := testComposer(rec).VisitsReport(rows, "2024-12-01", "2024-12-31")
	require.NoError(t, err)

	texts := rec.texts()
	assert.Contains(t, texts, "Relatório de Visitas")
	assert.Contains(t, texts, "Período: 2024-12-01 a 2024-12-31")
	assert.Contains(t, texts, "Total de Visitas: 2")

	cells := rec.cells(1)
	require.Len(t, cells, 15)
	assert.Equal(t, []string{"Código", "Família", "Data", "Status", "Tipo"},
		[]string{cells[0].text, cells[1].text, cells[2].text, cells[3].text, cells[4].text})
	assert.Equal(t, "05/12/2024", cells[7].text)
}

func TestStatisticsReportLabels(t *testing.T) {
	snap := StatisticsSnapshot{
		TotalFamilies: 150, ActiveFamilies: 120, PendingFamilies: 25, UrgentCases: 8,
		MonthlyRegistrations: 12, MonthlyVisits: 45, MonthlyTasks: 38,
	}
	rec := &recorder{}
	_, err := testComposer(rec).StatisticsReport(snap)
	require.NoError(t, err)
	texts := rec.texts()
	for _, want := range []string{
		"Total de Famílias Cadastradas: 150",
		"Famílias Ativas: 120",
		"Famílias Pendentes: 25",
		"Casos Urgentes: 8",
		"Novos Cadastros: 12",
		"Visitas Realizadas: 45",
		"Tarefas Concluídas: 38",
	} {
		assert.Contains(t, texts, want)
	}
	assert.Equal(t, 1, rec.pages)
}

func TestStatisticsReportPDFText(t *testing.T) {
	c := testComposer(nil)
	c.NewCanvas = func() Canvas { return NewPDFCanvas(false) }
	out, err := c.StatisticsReport(StatisticsSnapshot{
		TotalFamilies: 150, ActiveFamilies: 120, PendingFamilies: 25, UrgentCases: 8,
		MonthlyRegistrations: 12, MonthlyVisits: 45, MonthlyTasks: 38,
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	for _, want := range []string{
		"Cadastradas: 150", "Ativas: 120", "Pendentes: 25", "Urgentes: 8",
		"Novos Cadastros: 12", "Visitas Realizadas: 45", "das: 38",
	} {
		assert.True(t, bytes.Contains(out, []byte(want)), "missing %q", want)
	}
}

func TestThousandsUseLocaleGrouping(t *testing.T) {
	rec := &recorder{}
	_, err := testComposer(rec).StatisticsReport(StatisticsSnapshot{TotalFamilies: 1234})
	require.NoError(t, err)
	assert.Contains(t, rec.texts(), "Total de Famílias Cadastradas: 1.234")
	assert.Equal(t, "R$ 1.234,50", testComposer(rec).Money(1234.5))
}

func TestBackendFailureReturnsNoBytes(t *testing.T) {
	rec := &recorder{fail: errors.New("disk full")}
	out, err := testComposer(rec).FamilyExport(exportRows(3))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "disk full")
}

func TestFamilyDetailFooterOnEveryPage(t *testing.T) {
	members := make([]MemberRow, 30)
	for i := range members {
		members[i] = MemberRow{Name: fmt.Sprintf("Membro %d", i), Kinship: "Filho(a)", Age: "10", Occupation: "Não informado"}
	}
	rec := &recorder{}
	_, err := testComposer(rec).FamilyDetail(FamilyDetail{
		Code:            "fam-20241201-ABC123",
		Status:          "Ativa",
		Urgency:         "Alta",
		RegisteredOn:    time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		ResponsibleName: "Maria Silva",
		Members:         members,
		MonthlyIncome:   1500,
		Needs:           []string{"Cesta básica", "Roupas"},
		Observations:    strings.Repeat("Família acompanhada pela célula do bairro. ", 10),
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, rec.pages, 2)

	for page := 1; page <= rec.pages; page++ {
		want := fmt.Sprintf("Página %d de %d", page, rec.pages)
		found := false
		for _, o := range rec.ops {
			if o.kind == "text" && o.page == page && o.text == want {
				assert.Equal(t, 285.0, o.y)
				found = true
			}
		}
		assert.True(t, found, "missing footer on page %d", page)
	}
	texts := rec.texts()
	assert.Contains(t, texts, "Renda Mensal: R$ 1.500,00")
	assert.Contains(t, texts, "• Cesta básica")
}

func TestFamilyDetailWithoutMembersSkipsTable(t *testing.T) {
	rec := &recorder{}
	_, err := testComposer(rec).FamilyDetail(FamilyDetail{Code: "fam-1", ResponsibleName: "João"})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.pages)
	assert.NotContains(t, rec.texts(), "Membros da Família")
	assert.Empty(t, rec.cells(1))
	assert.Contains(t, rec.texts(), "Página 1 de 1")
}

func TestFamilyDetailPrintsEmailOnlyWhenSet(t *testing.T) {
	rec := &recorder{}
	_, err := testComposer(rec).FamilyDetail(FamilyDetail{Code: "fam-1", ResponsibleName: "Rosa", Phone: "81 3333-0000", Email: "rosa@example.org"})
	require.NoError(t, err)
	assert.Contains(t, rec.texts(), "Email: rosa@example.org")

	rec = &recorder{}
	_, err = testComposer(rec).FamilyDetail(FamilyDetail{Code: "fam-1", ResponsibleName: "Rosa", Phone: "81 3333-0000"})
	require.NoError(t, err)
	for _, s := range rec.texts() {
		assert.False(t, strings.HasPrefix(s, "Email:"), s)
	}
}

func TestColumnWidthsFillUsableWidth(t *testing.T) {
	rec := &recorder{}
	widths := columnWidths(rec, table{
		Head: []string{"A", "Nome"},
		Rows: [][]string{{"x", strings.Repeat("y", 200)}},
	})
	require.Len(t, widths, 2)
	assert.InDelta(t, usableWidth, widths[0]+widths[1], 1e-9)
	assert.Greater(t, widths[1], widths[0])
}

func TestFitTruncatesWithEllipsis(t *testing.T) {
	rec := &recorder{}
	assert.Equal(t, "abcd…", fit(rec, "abcdefghij", 10))
	assert.Equal(t, "abc", fit(rec, "abc", 10))
}

func TestWrapBreaksOverlongWords(t *testing.T) {
	rec := &recorder{}
	lines := wrap(rec, "ab abcdefghijkl c\nde", 10)
	assert.Equal(t, []string{"ab", "abcde", "fghij", "kl c", "de"}, lines)
	for _, l := range lines {
		assert.LessOrEqual(t, rec.StringWidth(l), 10.0, l)
	}
	assert.Equal(t, []string{"árvore", "s"}, wrap(rec, "árvores", 12))
}

func TestEnsureSpaceBreaksPage(t *testing.T) {
	rec := &recorder{}
	cur := begin(rec)
	cur.Y = 270
	next := ensureSpace(rec, cur, 15)
	assert.Equal(t, DocumentCursor{Page: 1, Y: marginTop}, next)
	assert.Equal(t, 2, rec.pages)
	assert.Equal(t, next, ensureSpace(rec, next, 15))
}

func TestFamiliesCSV(t *testing.T) {
	rows := exportRows(1)
	rows[0].Name = "Silva, Maria"
	out, err := testComposer(nil).FamiliesCSV(rows)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Código,Nome,Status,Urgência,Data Cadastro", lines[0])
	assert.Equal(t, `fam-20241201-000000,"Silva, Maria",Ativa,Média,01/12/2024`, lines[1])
}

func TestFilenames(t *testing.T) {
	day := time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "familia-fam-20241201-ABC123.pdf", FamilyFilename("fam-20241201-ABC123"))
	assert.Equal(t, "relatorio-visitas-2024-12-01-2024-12-31.pdf", VisitsFilename("2024-12-01", "2024-12-31"))
	assert.Equal(t, "relatorio-estatistico-2024-12-03.pdf", StatisticsFilename(day))
	assert.Equal(t, "familias-2024-12-03.csv", FamiliesCSVFilename(day))
	assert.Equal(t, "familias-2024-12-03.pdf", FamiliesPDFFilename(day))
}
