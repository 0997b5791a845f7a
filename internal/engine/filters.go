package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"casework/internal/domain"
)

// fold builds a fresh Caser per call; Casers are not safe for concurrent use.
func fold(s string) string {
	return cases.Fold().String(s)
}

// matchesAny reports whether needle (already folded) occurs in any of haystack.
func matchesAny(needle string, haystack ...string) bool {
	if needle == "" {
		return true
	}
	for _, h := range haystack {
		if strings.Contains(fold(h), needle) {
			return true
		}
	}
	return false
}

// enumMatch treats "" and "all" as no filter.
func enumMatch(filter, value string) bool {
	return filter == "" || strings.EqualFold(filter, "all") || filter == value
}

// FilterFamilies keeps families whose name, code, neighborhood or city
// contains search (case-insensitive) and whose status and urgency match.
func FilterFamilies(families []domain.Family, search, status, urgency string) []domain.Family {
	needle := fold(strings.TrimSpace(search))
	out := make([]domain.Family, 0, len(families))
	for _, f := range families {
		if !matchesAny(needle, f.ResponsibleName, f.PublicCode, f.Neighborhood, f.City) {
			continue
		}
		if !enumMatch(status, f.Status) || !enumMatch(urgency, f.UrgencyLevel) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FilterVisits matches search against the visit title and the family's name
// and code.
func FilterVisits(visits []domain.Visit, search, status, visitType string) []domain.Visit {
	needle := fold(strings.TrimSpace(search))
	out := make([]domain.Visit, 0, len(visits))
	for _, v := range visits {
		var name, code string
		if v.Family != nil {
			name, code = v.Family.ResponsibleName, v.Family.PublicCode
		}
		if !matchesAny(needle, v.Title, name, code) {
			continue
		}
		if !enumMatch(status, v.Status) || !enumMatch(visitType, v.VisitType) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// FilterTasks matches search against title, description and family name.
func FilterTasks(tasks []domain.Task, search, status, priority string) []domain.Task {
	needle := fold(strings.TrimSpace(search))
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		var name string
		if t.Family != nil {
			name = t.Family.ResponsibleName
		}
		if !matchesAny(needle, t.Title, t.Description, name) {
			continue
		}
		if !enumMatch(status, t.Status) || !enumMatch(priority, t.Priority) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// StatusLabel renders a status or urgency code for Portuguese-speaking readers.
func StatusLabel(code string) string {
	if l, ok := statusLabels[code]; ok {
		return l
	}
	return cases.Title(language.BrazilianPortuguese).String(strings.ToLower(strings.ReplaceAll(code, "_", " ")))
}

var statusLabels = map[string]string{
	"PENDING":      "Pendente",
	"IN_ANALYSIS":  "Em análise",
	"ACTIVE":       "Ativa",
	"ASSISTED":     "Assistida",
	"INACTIVE":     "Inativa",
	"ARCHIVED":     "Arquivada",
	"LOW":          "Baixa",
	"MEDIUM":       "Média",
	"HIGH":         "Alta",
	"CRITICAL":     "Crítica",
	"URGENT":       "Urgente",
	"SCHEDULED":    "Agendada",
	"COMPLETED":    "Concluída",
	"CANCELLED":    "Cancelada",
	"RESCHEDULED":  "Reagendada",
	"IN_PROGRESS":  "Em andamento",
	"HOME_VISIT":   "Visita domiciliar",
	"OFFICE_VISIT": "Atendimento presencial",
	"PHONE_CALL":   "Ligação",
	"OTHER":        "Outro",
}
