package wizard

import (
	"fmt"
	"sort"
	"strings"

	"casework/internal/domain"
)

type binding struct {
	step Step
	ptr  func(r *domain.Registration) any
}

// bindings maps form keys to registration fields.
var bindings = map[string]binding{
	"responsible_name":    {StepPersonalInfo, func(r *domain.Registration) any { return &r.ResponsibleName }},
	"number_of_members":   {StepPersonalInfo, func(r *domain.Registration) any { return &r.NumberOfMembers }},
	"marital_status":      {StepPersonalInfo, func(r *domain.Registration) any { return &r.MaritalStatus }},
	"nis":                 {StepPersonalInfo, func(r *domain.Registration) any { return &r.NIS }},
	"cpf":                 {StepPersonalInfo, func(r *domain.Registration) any { return &r.CPF }},
	"rg":                  {StepPersonalInfo, func(r *domain.Registration) any { return &r.RG }},
	"sus_card":            {StepPersonalInfo, func(r *domain.Registration) any { return &r.SUSCard }},
	"birth_date":          {StepPersonalInfo, func(r *domain.Registration) any { return &r.BirthDate }},
	"age":                 {StepPersonalInfo, func(r *domain.Registration) any { return &r.Age }},
	"gender":              {StepPersonalInfo, func(r *domain.Registration) any { return &r.Gender }},
	"education":           {StepPersonalInfo, func(r *domain.Registration) any { return &r.Education }},
	"race":                {StepPersonalInfo, func(r *domain.Registration) any { return &r.Race }},
	"formal_income":       {StepPersonalInfo, func(r *domain.Registration) any { return &r.FormalIncome }},
	"informal_income":     {StepPersonalInfo, func(r *domain.Registration) any { return &r.InformalIncome }},
	"occupation":          {StepPersonalInfo, func(r *domain.Registration) any { return &r.Occupation }},
	"professional_course": {StepPersonalInfo, func(r *domain.Registration) any { return &r.ProfessionalCourse }},
	"church_in_homes":     {StepPersonalInfo, func(r *domain.Registration) any { return &r.ChurchInHomes }},
	"ic_leader":           {StepPersonalInfo, func(r *domain.Registration) any { return &r.ICLeader }},
	"leader_contact":      {StepPersonalInfo, func(r *domain.Registration) any { return &r.LeaderContact }},

	"street":          {StepAddressContact, func(r *domain.Registration) any { return &r.Street }},
	"address_number":  {StepAddressContact, func(r *domain.Registration) any { return &r.AddressNumber }},
	"neighborhood":    {StepAddressContact, func(r *domain.Registration) any { return &r.Neighborhood }},
	"zip_code":        {StepAddressContact, func(r *domain.Registration) any { return &r.ZipCode }},
	"city":            {StepAddressContact, func(r *domain.Registration) any { return &r.City }},
	"reference_point": {StepAddressContact, func(r *domain.Registration) any { return &r.ReferencePoint }},
	"phone":           {StepAddressContact, func(r *domain.Registration) any { return &r.Phone }},
	"email":           {StepAddressContact, func(r *domain.Registration) any { return &r.Email }},
	"contact_person":  {StepAddressContact, func(r *domain.Registration) any { return &r.ContactPerson }},
	"visit_day":       {StepAddressContact, func(r *domain.Registration) any { return &r.VisitDay }},
	"visit_time":      {StepAddressContact, func(r *domain.Registration) any { return &r.VisitTime }},

	"housing_type":        {StepHousing, func(r *domain.Registration) any { return &r.HousingType }},
	"paved_street":        {StepHousing, func(r *domain.Registration) any { return &r.PavedStreet }},
	"number_of_rooms":     {StepHousing, func(r *domain.Registration) any { return &r.NumberOfRooms }},
	"number_of_bedrooms":  {StepHousing, func(r *domain.Registration) any { return &r.NumberOfBedrooms }},
	"number_of_bathrooms": {StepHousing, func(r *domain.Registration) any { return &r.NumberOfBathrooms }},
	"construction_type":   {StepHousing, func(r *domain.Registration) any { return &r.ConstructionType }},
	"risk_location":       {StepHousing, func(r *domain.Registration) any { return &r.RiskLocation }},
	"electricity_type":    {StepHousing, func(r *domain.Registration) any { return &r.ElectricityType }},
	"sewage_destination":  {StepHousing, func(r *domain.Registration) any { return &r.SewageDestination }},
	"bathroom_type":       {StepHousing, func(r *domain.Registration) any { return &r.BathroomType }},
	"water_supply":        {StepHousing, func(r *domain.Registration) any { return &r.WaterSupply }},
	"waste_destination":   {StepHousing, func(r *domain.Registration) any { return &r.WasteDestination }},
	"vaccines_up_to_date": {StepHousing, func(r *domain.Registration) any { return &r.VaccinesUpToDate }},
	"food_situation":      {StepHousing, func(r *domain.Registration) any { return &r.FoodSituation }},

	"immediate_needs":    {StepFinal, func(r *domain.Registration) any { return &r.ImmediateNeeds }},
	"final_observations": {StepFinal, func(r *domain.Registration) any { return &r.FinalObservations }},
}

// UnknownFieldError reports a form key with no registration field.
type UnknownFieldError struct {
	Key string
}

func (e UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown registration field %q", e.Key)
}

// SetField stores one form value. Blank optional values clear the field.
// Numbers keep their leading digits; zero counts and incomes are treated as
// not informed, except number_of_members. Booleans are true only for "true".
func (w *Wizard) SetField(key, value string) error {
	b, ok := bindings[key]
	if !ok {
		return UnknownFieldError{Key: key}
	}
	switch p := b.ptr(&w.reg).(type) {
	case *string:
		*p = value
	case **string:
		*p = nil
		if !isBlank(value) {
			v := value
			*p = &v
		}
	case **int:
		n := domain.ParseInt(value)
		if n != nil && *n == 0 && key != "number_of_members" {
			n = nil
		}
		*p = n
	case **float64:
		f := domain.ParseDecimal(value)
		if f != nil && *f == 0 {
			f = nil
		}
		*p = f
	case *bool:
		*p = value == "true"
	}
	return nil
}

// SetFields applies SetField to each entry and stops at the first unknown key.
func (w *Wizard) SetFields(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.SetField(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

// FieldKeys lists the form keys collected on step s, sorted.
func FieldKeys(s Step) []string {
	var keys []string
	for k, b := range bindings {
		if b.step == s {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// MissingRequired names the required keys still blank, in form order.
func (w *Wizard) MissingRequired() []string {
	var out []string
	for _, k := range []string{"responsible_name", "street", "neighborhood", "city"} {
		if isBlank(*bindings[k].ptr(&w.reg).(*string)) {
			out = append(out, k)
		}
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
