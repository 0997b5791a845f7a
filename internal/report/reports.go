package report

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"casework/internal/config"
)

type FamilyExportRow struct {
	Code         string
	Name         string
	Status       string
	Urgency      string
	RegisteredOn time.Time
}

type VisitReportRow struct {
	FamilyCode    string
	FamilyName    string
	ScheduledDate time.Time
	Status        string
	Type          string
}

type StatisticsSnapshot struct {
	TotalFamilies        int
	ActiveFamilies       int
	PendingFamilies      int
	UrgentCases          int
	MonthlyRegistrations int
	MonthlyVisits        int
	MonthlyTasks         int
}

type MemberRow struct {
	Name       string
	Kinship    string
	Age        string
	Occupation string
}

// FamilyDetail is the single-family registration sheet. Blank values are
// expected to be replaced with a placeholder by the caller.
type FamilyDetail struct {
	Code             string
	Status           string
	Urgency          string
	RegisteredOn     time.Time
	ResponsibleName  string
	CPF              string
	Phone            string
	// Email is printed only when set.
	Email            string
	AddressLine      string
	Neighborhood     string
	City             string
	ZipCode          string
	Members          []MemberRow
	MonthlyIncome    float64
	HousingType      string
	HousingCondition string
	Needs            []string
	Observations     string
}

// Composer lays out reports onto a Canvas and returns the finished document.
type Composer struct {
	Organization string
	Currency     string
	DateLayout   string
	Lang         language.Tag
	NewCanvas    func() Canvas
	Now          func() time.Time
}

// NewComposer builds a Composer from the report section of cfg.
func NewComposer(cfg *config.Config) Composer {
	if cfg == nil {
		cfg = config.Default()
	}
	tag, err := language.Parse(cfg.Report.Locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	return Composer{
		Organization: cfg.Organization.Name,
		Currency:     cfg.Report.CurrencySymbol,
		DateLayout:   cfg.Report.DateLayout,
		Lang:         tag,
		NewCanvas:    func() Canvas { return NewPDFCanvas(true) },
		Now:          time.Now,
	}
}

func (c Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Composer) printer() *message.Printer {
	if c.Lang == language.Und {
		return message.NewPrinter(language.BrazilianPortuguese)
	}
	return message.NewPrinter(c.Lang)
}

func (c Composer) number(n int) string {
	return c.printer().Sprintf("%d", n)
}

// Money renders v with the currency symbol and two locale decimals.
func (c Composer) Money(v float64) string {
	cur := c.Currency
	if cur == "" {
		cur = "R$"
	}
	return cur + " " + c.printer().Sprintf("%.2f", v)
}

func (c Composer) date(t time.Time) string {
	layout := c.DateLayout
	if layout == "" {
		layout = "02/01/2006"
	}
	return t.Format(layout)
}

func (c Composer) render(draw func(Canvas)) ([]byte, error) {
	newCanvas := c.NewCanvas
	if newCanvas == nil {
		newCanvas = func() Canvas { return NewPDFCanvas(true) }
	}
	cv := newCanvas()
	draw(cv)
	var buf bytes.Buffer
	if err := cv.Output(&buf); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

// FamilyExport renders the family list: a title block then a four column
// table.
func (c Composer) FamilyExport(rows []FamilyExportRow) ([]byte, error) {
	return c.render(func(cv Canvas) {
		cur := begin(cv)
		cur = heading(cv, cur, "Relatório de Famílias", 20, 15)
		cv.SetFont("", 12)
		cur = textLine(cv, cur, marginLeft, "Gerado em: "+c.date(c.now()), 10)
		cur = textLine(cv, cur, marginLeft, "Total de Famílias: "+c.number(len(rows)), 15)
		t := table{Head: []string{"Código", "Nome", "Status", "Data"}}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{r.Code, r.Name, r.Status, c.date(r.RegisteredOn)})
		}
		drawTable(cv, cur, t)
	})
}

// VisitsReport renders visits scheduled between start and end, which are
// printed as given.
func (c Composer) VisitsReport(rows []VisitReportRow, start, end string) ([]byte, error) {
	return c.render(func(cv Canvas) {
		cur := begin(cv)
		cur = heading(cv, cur, "Relatório de Visitas", 20, 15)
		cv.SetFont("", 12)
		cur = textLine(cv, cur, marginLeft, fmt.Sprintf("Período: %s a %s", start, end), 10)
		cur = textLine(cv, cur, marginLeft, "Total de Visitas: "+c.number(len(rows)), 15)
		t := table{Head: []string{"Código", "Família", "Data", "Status", "Tipo"}}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{r.FamilyCode, r.FamilyName, c.date(r.ScheduledDate), r.Status, r.Type})
		}
		drawTable(cv, cur, t)
	})
}

type statLine struct {
	label string
	value int
}

// StatisticsReport renders the general and monthly counters.
func (c Composer) StatisticsReport(s StatisticsSnapshot) ([]byte, error) {
	return c.render(func(cv Canvas) {
		cur := begin(cv)
		cur = heading(cv, cur, "Relatório Estatístico", 20, 15)
		cv.SetFont("", 12)
		cur = textLine(cv, cur, marginLeft, "Gerado em: "+c.date(c.now()), 15)
		cur = c.statSection(cv, cur, "Estatísticas Gerais", []statLine{
			{"Total de Famílias Cadastradas", s.TotalFamilies},
			{"Famílias Ativas", s.ActiveFamilies},
			{"Famílias Pendentes", s.PendingFamilies},
			{"Casos Urgentes", s.UrgentCases},
		})
		cur.Y += 12
		c.statSection(cv, cur, "Estatísticas do Mês", []statLine{
			{"Novos Cadastros", s.MonthlyRegistrations},
			{"Visitas Realizadas", s.MonthlyVisits},
			{"Tarefas Concluídas", s.MonthlyTasks},
		})
	})
}

// statSection moves to a new page first when the header and every line do
// not fit on the current one.
func (c Composer) statSection(cv Canvas, cur DocumentCursor, title string, lines []statLine) DocumentCursor {
	const lineStep = 8.0
	cur = ensureSpace(cv, cur, 15+float64(len(lines))*lineStep)
	cv.SetFont("B", 14)
	ink(cv, titleInk)
	cur = textLine(cv, cur, marginLeft, title, 15)
	cv.SetFont("", 12)
	ink(cv, bodyInk)
	for _, l := range lines {
		cur = textLine(cv, cur, 25, l.label+": "+c.number(l.value), lineStep)
	}
	return cur
}

// FamilyDetail renders the "Ficha de Cadastro Familiar" with a page footer.
func (c Composer) FamilyDetail(d FamilyDetail) ([]byte, error) {
	return c.render(func(cv Canvas) {
		cur := begin(cv)
		cv.SetFont("B", 16)
		ink(cv, titleInk)
		cur = textLine(cv, cur, marginLeft, c.Organization, 15)
		cv.SetFont("", 14)
		cur = textLine(cv, cur, marginLeft, "Ficha de Cadastro Familiar", 15)

		cv.SetFont("", 12)
		ink(cv, bodyInk)
		cur = textLine(cv, cur, marginLeft, "Código: "+d.Code, 10)
		cur = textLine(cv, cur, marginLeft, "Status: "+d.Status, 10)
		cur = textLine(cv, cur, marginLeft, "Urgência: "+d.Urgency, 10)
		cur = textLine(cv, cur, marginLeft, "Data de Cadastro: "+c.date(d.RegisteredOn), 20)

		cur = c.section(cv, cur, "Responsável pela Família")
		cur = textLine(cv, cur, marginLeft, "Nome: "+d.ResponsibleName, 8)
		cur = textLine(cv, cur, marginLeft, "CPF: "+d.CPF, 8)
		if d.Email == "" {
			cur = textLine(cv, cur, marginLeft, "Telefone: "+d.Phone, 18)
		} else {
			cur = textLine(cv, cur, marginLeft, "Telefone: "+d.Phone, 8)
			cur = textLine(cv, cur, marginLeft, "Email: "+d.Email, 18)
		}

		cur = c.section(cv, cur, "Endereço")
		cur = textLine(cv, cur, marginLeft, d.AddressLine, 8)
		cur = textLine(cv, cur, marginLeft, d.Neighborhood+", "+d.City, 8)
		cur = textLine(cv, cur, marginLeft, "CEP: "+d.ZipCode, 20)

		if len(d.Members) > 0 {
			cur = c.section(cv, cur, "Membros da Família")
			t := table{Head: []string{"Nome", "Parentesco", "Idade", "Ocupação"}}
			for _, m := range d.Members {
				t.Rows = append(t.Rows, []string{m.Name, m.Kinship, m.Age, m.Occupation})
			}
			cur = drawTable(cv, cur, t)
			cur.Y += 20
			cv.SetFont("", 12)
			ink(cv, bodyInk)
		}

		if cur.Y > 250 {
			cur = newPage(cv, cur)
		}
		cur = c.section(cv, cur, "Informações Socioeconômicas")
		cur = textLine(cv, cur, marginLeft, "Renda Mensal: "+c.Money(d.MonthlyIncome), 8)
		cur = textLine(cv, cur, marginLeft, "Tipo de Moradia: "+d.HousingType, 8)
		cur = textLine(cv, cur, marginLeft, "Condição da Moradia: "+d.HousingCondition, 20)

		if len(d.Needs) > 0 {
			cur = ensureSpace(cv, cur, 18)
			cur = c.section(cv, cur, "Necessidades Identificadas")
			for _, n := range d.Needs {
				cur = ensureSpace(cv, cur, 8)
				cur = textLine(cv, cur, 25, "• "+n, 8)
			}
		}

		if d.Observations != "" {
			cur.Y += 10
			cur = ensureSpace(cv, cur, 18)
			cur = c.section(cv, cur, "Observações")
			for _, line := range wrap(cv, d.Observations, usableWidth) {
				cur = ensureSpace(cv, cur, 6)
				cur = textLine(cv, cur, marginLeft, line, 6)
			}
		}

		c.footer(cv)
	})
}

func (c Composer) section(cv Canvas, cur DocumentCursor, title string) DocumentCursor {
	cur = heading(cv, cur, title, 14, 10)
	cv.SetFont("", 12)
	ink(cv, bodyInk)
	return cur
}

func (c Composer) footer(cv Canvas) {
	n := cv.PageCount()
	for i := 1; i <= n; i++ {
		cv.SetPage(i)
		cv.SetFont("", 8)
		ink(cv, footerInk)
		cv.Text(marginLeft, 285, "Página "+strconv.Itoa(i)+" de "+strconv.Itoa(n))
		cv.Text(120, 285, c.Organization)
	}
}
