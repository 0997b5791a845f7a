package domain

// Family status values.
const (
	FamilyPending    = "PENDING"
	FamilyInAnalysis = "IN_ANALYSIS"
	FamilyActive     = "ACTIVE"
	FamilyAssisted   = "ASSISTED"
	FamilyInactive   = "INACTIVE"
	FamilyArchived   = "ARCHIVED"
)

// Urgency levels shared by families and attendance entries.
const (
	UrgencyLow      = "LOW"
	UrgencyMedium   = "MEDIUM"
	UrgencyHigh     = "HIGH"
	UrgencyCritical = "CRITICAL"
)

const (
	VisitScheduled   = "SCHEDULED"
	VisitCompleted   = "COMPLETED"
	VisitCancelled   = "CANCELLED"
	VisitRescheduled = "RESCHEDULED"
)

const (
	TaskPending    = "PENDING"
	TaskInProgress = "IN_PROGRESS"
	TaskCompleted  = "COMPLETED"
	TaskCancelled  = "CANCELLED"
)

var (
	FamilyStatuses = []string{FamilyPending, FamilyInAnalysis, FamilyActive, FamilyAssisted, FamilyInactive, FamilyArchived}
	UrgencyLevels  = []string{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}
	VisitStatuses  = []string{VisitScheduled, VisitCompleted, VisitCancelled, VisitRescheduled}
	VisitTypes     = []string{"HOME_VISIT", "OFFICE_VISIT", "PHONE_CALL", "OTHER"}
	TaskStatuses   = []string{TaskPending, TaskInProgress, TaskCompleted, TaskCancelled}
	TaskPriorities = []string{"LOW", "MEDIUM", "HIGH", "URGENT"}
	UserRoles      = []string{"ADMIN", "COORDINATOR", "VOLUNTEER"}
)

// Registration is the family intake record collected by the registration
// wizard. Pointer fields are optional; the four plain strings are required.
type Registration struct {
	// Personal information
	ResponsibleName    string   `json:"responsible_name" yaml:"responsible_name"`
	NumberOfMembers    *int     `json:"number_of_members,omitempty" yaml:"number_of_members,omitempty"`
	MaritalStatus      *string  `json:"marital_status,omitempty" yaml:"marital_status,omitempty"`
	NIS                *string  `json:"nis,omitempty" yaml:"nis,omitempty"`
	CPF                *string  `json:"cpf,omitempty" yaml:"cpf,omitempty"`
	RG                 *string  `json:"rg,omitempty" yaml:"rg,omitempty"`
	SUSCard            *string  `json:"sus_card,omitempty" yaml:"sus_card,omitempty"`
	BirthDate          *string  `json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	Age                *int     `json:"age,omitempty" yaml:"age,omitempty"`
	Gender             *string  `json:"gender,omitempty" yaml:"gender,omitempty"`
	Education          *string  `json:"education,omitempty" yaml:"education,omitempty"`
	Race               *string  `json:"race,omitempty" yaml:"race,omitempty"`
	FormalIncome       *float64 `json:"formal_income,omitempty" yaml:"formal_income,omitempty"`
	InformalIncome     *float64 `json:"informal_income,omitempty" yaml:"informal_income,omitempty"`
	Occupation         *string  `json:"occupation,omitempty" yaml:"occupation,omitempty"`
	ProfessionalCourse *string  `json:"professional_course,omitempty" yaml:"professional_course,omitempty"`
	ChurchInHomes      *string  `json:"church_in_homes,omitempty" yaml:"church_in_homes,omitempty"`
	ICLeader           *string  `json:"ic_leader,omitempty" yaml:"ic_leader,omitempty"`
	LeaderContact      *string  `json:"leader_contact,omitempty" yaml:"leader_contact,omitempty"`

	// Address and contact
	Street         string  `json:"street" yaml:"street"`
	AddressNumber  *string `json:"address_number,omitempty" yaml:"address_number,omitempty"`
	Neighborhood   string  `json:"neighborhood" yaml:"neighborhood"`
	ZipCode        *string `json:"zip_code,omitempty" yaml:"zip_code,omitempty"`
	City           string  `json:"city" yaml:"city"`
	ReferencePoint *string `json:"reference_point,omitempty" yaml:"reference_point,omitempty"`
	Phone          *string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email          *string `json:"email,omitempty" yaml:"email,omitempty" format:"email"`
	ContactPerson  *string `json:"contact_person,omitempty" yaml:"contact_person,omitempty"`
	VisitDay       *string `json:"visit_day,omitempty" yaml:"visit_day,omitempty"`
	VisitTime      *string `json:"visit_time,omitempty" yaml:"visit_time,omitempty"`

	// Housing and health
	HousingType       *string `json:"housing_type,omitempty" yaml:"housing_type,omitempty"`
	PavedStreet       bool    `json:"paved_street" yaml:"paved_street"`
	NumberOfRooms     *int    `json:"number_of_rooms,omitempty" yaml:"number_of_rooms,omitempty"`
	NumberOfBedrooms  *int    `json:"number_of_bedrooms,omitempty" yaml:"number_of_bedrooms,omitempty"`
	NumberOfBathrooms *int    `json:"number_of_bathrooms,omitempty" yaml:"number_of_bathrooms,omitempty"`
	ConstructionType  *string `json:"construction_type,omitempty" yaml:"construction_type,omitempty"`
	RiskLocation      bool    `json:"risk_location" yaml:"risk_location"`
	ElectricityType   *string `json:"electricity_type,omitempty" yaml:"electricity_type,omitempty"`
	SewageDestination *string `json:"sewage_destination,omitempty" yaml:"sewage_destination,omitempty"`
	BathroomType      *string `json:"bathroom_type,omitempty" yaml:"bathroom_type,omitempty"`
	WaterSupply       *string `json:"water_supply,omitempty" yaml:"water_supply,omitempty"`
	WasteDestination  *string `json:"waste_destination,omitempty" yaml:"waste_destination,omitempty"`
	VaccinesUpToDate  bool    `json:"vaccines_up_to_date" yaml:"vaccines_up_to_date"`
	FoodSituation     *string `json:"food_situation,omitempty" yaml:"food_situation,omitempty"`

	// Final
	ImmediateNeeds    *string `json:"immediate_needs,omitempty" yaml:"immediate_needs,omitempty"`
	FinalObservations *string `json:"final_observations,omitempty" yaml:"final_observations,omitempty"`
}

// MemberInput is one repeated member row as typed into the wizard.
type MemberInput struct {
	Name    string `json:"name" yaml:"name"`
	Kinship string `json:"kinship" yaml:"kinship"`
	Age     string `json:"age" yaml:"age"`
}

type Family struct {
	ID               string  `json:"id"`
	PublicCode       string  `json:"public_code"`
	Status           string  `json:"status" enum:"PENDING,IN_ANALYSIS,ACTIVE,ASSISTED,INACTIVE,ARCHIVED"`
	UrgencyLevel     string  `json:"urgency_level" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	AssignedTo       *string `json:"assigned_to,omitempty"`
	AssignedUserName string  `json:"assigned_user_name,omitempty"`
	Registration
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// FamilyRef is what the store hands back after inserting a family.
type FamilyRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type FamilyMember struct {
	ID         string  `json:"id"`
	FamilyID   string  `json:"family_id"`
	Position   int     `json:"position"`
	Name       string  `json:"name"`
	Kinship    string  `json:"kinship"`
	Age        *int    `json:"age,omitempty"`
	Occupation *string `json:"occupation,omitempty"`
}

// FamilyDetails is a family with everything hanging off it.
type FamilyDetails struct {
	Family
	Members    []FamilyMember    `json:"members"`
	Visits     []Visit           `json:"visits"`
	Tasks      []Task            `json:"tasks"`
	Attendance []AttendanceEntry `json:"attendance"`
}

// FamilySummary is the compact family reference embedded in visits and tasks.
type FamilySummary struct {
	ID              string `json:"id"`
	PublicCode      string `json:"public_code"`
	ResponsibleName string `json:"responsible_name"`
	Neighborhood    string `json:"neighborhood"`
	City            string `json:"city"`
	Phone           string `json:"phone,omitempty"`
}

type Visit struct {
	ID               string         `json:"id"`
	FamilyID         string         `json:"family_id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	VisitType        string         `json:"visit_type" enum:"HOME_VISIT,OFFICE_VISIT,PHONE_CALL,OTHER"`
	Status           string         `json:"status" enum:"SCHEDULED,COMPLETED,CANCELLED,RESCHEDULED"`
	ScheduledAt      string         `json:"scheduled_at" format:"date-time"`
	CompletedAt      *string        `json:"completed_at,omitempty" format:"date-time"`
	Notes            string         `json:"notes,omitempty"`
	AssignedTo       *string        `json:"assigned_to,omitempty"`
	AssignedUserName string         `json:"assigned_user_name,omitempty"`
	Family           *FamilySummary `json:"family,omitempty"`
	CreatedAt        string         `json:"created_at" format:"date-time"`
}

type Task struct {
	ID               string         `json:"id"`
	FamilyID         *string        `json:"family_id,omitempty"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Priority         string         `json:"priority" enum:"LOW,MEDIUM,HIGH,URGENT"`
	Status           string         `json:"status" enum:"PENDING,IN_PROGRESS,COMPLETED,CANCELLED"`
	DueDate          *string        `json:"due_date,omitempty"`
	CompletedAt      *string        `json:"completed_at,omitempty" format:"date-time"`
	AssignedTo       *string        `json:"assigned_to,omitempty"`
	AssignedUserName string         `json:"assigned_user_name,omitempty"`
	Family           *FamilySummary `json:"family,omitempty"`
	CreatedAt        string         `json:"created_at" format:"date-time"`
}

type AttendanceEntry struct {
	ID             string `json:"id"`
	FamilyID       string `json:"family_id"`
	AttendedBy     string `json:"attended_by"`
	AttendedByName string `json:"attended_by_name,omitempty"`
	Description    string `json:"description"`
	Urgency        string `json:"urgency" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Notes          string `json:"notes,omitempty"`
	CreatedAt      string `json:"created_at" format:"date-time"`
}

type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role" enum:"ADMIN,COORDINATOR,VOLUNTEER"`
	Status    string `json:"status" enum:"ACTIVE,INACTIVE"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// DashboardStats are the caseworker dashboard counters.
type DashboardStats struct {
	TotalFamilies   int `json:"total_families"`
	PendingFamilies int `json:"pending_families"`
	ActiveFamilies  int `json:"active_families"`
	UrgentCases     int `json:"urgent_cases"`
	ScheduledVisits int `json:"scheduled_visits"`
	CompletedVisits int `json:"completed_visits"`
	PendingTasks    int `json:"pending_tasks"`
	CompletedTasks  int `json:"completed_tasks"`
	// MonthlyRegistrations counts families registered since the start of the month.
	MonthlyRegistrations int `json:"monthly_registrations"`
}

// Contains reports whether v is one of values.
func Contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
