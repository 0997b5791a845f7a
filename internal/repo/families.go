package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"casework/internal/domain"
)

var familyColumns = []string{
	"id", "public_code", "status", "urgency_level",
	"responsible_name", "number_of_members", "marital_status", "nis", "cpf", "rg", "sus_card",
	"birth_date", "age", "gender", "education", "race", "formal_income", "informal_income",
	"occupation", "professional_course", "church_in_homes", "ic_leader", "leader_contact",
	"street", "number", "neighborhood", "zip_code", "city", "reference_point", "phone", "email",
	"contact_person", "visit_day", "visit_time",
	"housing_type", "paved_street", "number_of_rooms", "number_of_bedrooms", "number_of_bathrooms",
	"construction_type", "risk_location", "electricity_type", "sewage_destination", "bathroom_type",
	"water_supply", "waste_destination", "vaccines_up_to_date", "food_situation",
	"immediate_needs", "final_observations",
	"assigned_to", "created_at", "updated_at",
}

// familyFields returns pointers into f in familyColumns order.
func familyFields(f *domain.Family) []any {
	g := &f.Registration
	return []any{
		&f.ID, &f.PublicCode, &f.Status, &f.UrgencyLevel,
		&g.ResponsibleName, &g.NumberOfMembers, &g.MaritalStatus, &g.NIS, &g.CPF, &g.RG, &g.SUSCard,
		&g.BirthDate, &g.Age, &g.Gender, &g.Education, &g.Race, &g.FormalIncome, &g.InformalIncome,
		&g.Occupation, &g.ProfessionalCourse, &g.ChurchInHomes, &g.ICLeader, &g.LeaderContact,
		&g.Street, &g.AddressNumber, &g.Neighborhood, &g.ZipCode, &g.City, &g.ReferencePoint, &g.Phone, &g.Email,
		&g.ContactPerson, &g.VisitDay, &g.VisitTime,
		&g.HousingType, &g.PavedStreet, &g.NumberOfRooms, &g.NumberOfBedrooms, &g.NumberOfBathrooms,
		&g.ConstructionType, &g.RiskLocation, &g.ElectricityType, &g.SewageDestination, &g.BathroomType,
		&g.WaterSupply, &g.WasteDestination, &g.VaccinesUpToDate, &g.FoodSituation,
		&g.ImmediateNeeds, &g.FinalObservations,
		&f.AssignedTo, &f.CreatedAt, &f.UpdatedAt,
	}
}

// argValue turns a field pointer into a driver argument, mapping absent
// optionals to NULL.
func argValue(p any) any {
	switch v := p.(type) {
	case *string:
		return *v
	case *bool:
		return *v
	case **string:
		return nullableStringPtr(*v)
	case **int:
		return nullableIntPtr(*v)
	case **float64:
		return nullableFloatPtr(*v)
	default:
		panic(fmt.Sprintf("unsupported family field %T", p))
	}
}

func familySelect() string {
	cols := make([]string, len(familyColumns))
	for i, c := range familyColumns {
		cols[i] = "f." + c
	}
	return `SELECT ` + strings.Join(cols, ",") + `,COALESCE(u.name,'') FROM families f LEFT JOIN users u ON u.id=f.assigned_to `
}

func scanFamily(sc interface{ Scan(...any) error }) (domain.Family, error) {
	var f domain.Family
	dest := append(familyFields(&f), &f.AssignedUserName)
	if err := sc.Scan(dest...); err != nil {
		return domain.Family{}, err
	}
	return f, nil
}

// InsertFamily writes a family row. The public code must be unique.
func (r Repo) InsertFamily(ctx context.Context, tx *sql.Tx, f domain.Family) error {
	fields := familyFields(&f)
	args := make([]any, len(fields))
	for i, p := range fields {
		args[i] = argValue(p)
	}
	query := `INSERT INTO families(` + strings.Join(familyColumns, ",") + `) VALUES (` + marks(len(familyColumns)) + `)`
	_, err := r.on(tx).ExecContext(ctx, r.q(query), args...)
	return err
}

func (r Repo) GetFamily(ctx context.Context, id string) (domain.Family, error) {
	f, err := scanFamily(r.DB.QueryRowContext(ctx, r.q(familySelect()+`WHERE f.id=?`), id))
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	return f, err
}

func (r Repo) GetFamilyByCode(ctx context.Context, code string) (domain.Family, error) {
	f, err := scanFamily(r.DB.QueryRowContext(ctx, r.q(familySelect()+`WHERE f.public_code=?`), code))
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	return f, err
}

type FamilyFilters struct {
	Status     string
	Urgency    string
	AssignedTo string
	Since      string
	Limit      int
}

// ListFamilies returns families newest first.
func (r Repo) ListFamilies(ctx context.Context, f FamilyFilters) ([]domain.Family, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "f.status=?")
		args = append(args, f.Status)
	}
	if f.Urgency != "" {
		clauses = append(clauses, "f.urgency_level=?")
		args = append(args, f.Urgency)
	}
	if f.AssignedTo != "" {
		clauses = append(clauses, "f.assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	if f.Since != "" {
		clauses = append(clauses, "f.created_at>=?")
		args = append(args, f.Since)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := familySelect() + where + ` ORDER BY f.created_at DESC, f.id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Family
	for rows.Next() {
		fam, err := scanFamily(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, fam)
	}
	return res, rows.Err()
}

// UpdateFamilyStatus sets status and, when given, urgency.
func (r Repo) UpdateFamilyStatus(ctx context.Context, tx *sql.Tx, id, status string, urgency *string, updatedAt string) error {
	fields := []string{"status=?", "updated_at=?"}
	args := []any{status, updatedAt}
	if urgency != nil {
		fields = append(fields, "urgency_level=?")
		args = append(args, *urgency)
	}
	args = append(args, id)
	res, err := r.on(tx).ExecContext(ctx, r.q(`UPDATE families SET `+strings.Join(fields, ",")+` WHERE id=?`), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) AssignFamily(ctx context.Context, tx *sql.Tx, id, userID, updatedAt string) error {
	res, err := r.on(tx).ExecContext(ctx, r.q(`UPDATE families SET assigned_to=?, updated_at=? WHERE id=?`), nullable(userID), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountFamilies(ctx context.Context, statuses []string, urgencies []string, since string) (int, error) {
	var clauses []string
	var args []any
	if len(statuses) > 0 {
		clauses = append(clauses, "status IN ("+marks(len(statuses))+")")
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	if len(urgencies) > 0 {
		clauses = append(clauses, "urgency_level IN ("+marks(len(urgencies))+")")
		for _, u := range urgencies {
			args = append(args, u)
		}
	}
	if since != "" {
		clauses = append(clauses, "created_at>=?")
		args = append(args, since)
	}
	return r.count(ctx, "families", clauses, args)
}

func (r Repo) count(ctx context.Context, table string, clauses []string, args []any) (int, error) {
	query := `SELECT COUNT(*) FROM ` + table
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	var n int
	if err := r.DB.QueryRowContext(ctx, r.q(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func marks(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
