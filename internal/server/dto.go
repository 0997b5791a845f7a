package server

import (
	"casework/internal/domain"
	"casework/internal/wizard"
)

// Request payloads

// RegistrationRequest submits the whole form in one call.
type RegistrationRequest struct {
	Fields  map[string]string    `json:"fields" doc:"Form values keyed by field name"`
	Members []domain.MemberInput `json:"members,omitempty"`
}

type SetFieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

type UpdateMemberRequest struct {
	Name    *string `json:"name,omitempty"`
	Kinship *string `json:"kinship,omitempty"`
	Age     *string `json:"age,omitempty"`
}

type UpdateFamilyStatusRequest struct {
	Status  string  `json:"status" enum:"PENDING,IN_ANALYSIS,ACTIVE,ASSISTED,INACTIVE,ARCHIVED"`
	Urgency *string `json:"urgency,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
}

type AssignFamilyRequest struct {
	UserID string `json:"user_id" doc:"Empty unassigns"`
}

type CreateAttendanceRequest struct {
	Description string `json:"description"`
	Urgency     string `json:"urgency,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Notes       string `json:"notes,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

type CreateVisitRequest struct {
	FamilyID    string `json:"family_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	VisitType   string `json:"visit_type,omitempty" enum:"HOME_VISIT,OFFICE_VISIT,PHONE_CALL,OTHER"`
	ScheduledAt string `json:"scheduled_at" format:"date-time"`
	AssignedTo  string `json:"assigned_to,omitempty"`
}

type UpdateVisitStatusRequest struct {
	Status string  `json:"status" enum:"SCHEDULED,COMPLETED,CANCELLED,RESCHEDULED"`
	Notes  *string `json:"notes,omitempty"`
}

type CreateTaskRequest struct {
	FamilyID    string `json:"family_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,URGENT"`
	DueDate     string `json:"due_date,omitempty" format:"date"`
	AssignedTo  string `json:"assigned_to,omitempty"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" enum:"PENDING,IN_PROGRESS,COMPLETED,CANCELLED"`
}

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" format:"email"`
	Role  string `json:"role,omitempty" enum:"ADMIN,COORDINATOR,VOLUNTEER"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

type DevLoginRequest struct {
	UserID string `json:"user_id"`
}

// Response payloads

// SessionResponse is the wizard state as seen by a client.
type SessionResponse struct {
	ID           string               `json:"id"`
	Step         int                  `json:"step" minimum:"1" maximum:"6"`
	StepName     string               `json:"step_name"`
	Progress     int                  `json:"progress" minimum:"0" maximum:"100"`
	Registration domain.Registration  `json:"registration"`
	Members      []domain.MemberInput `json:"members"`
	Missing      []string             `json:"missing_required,omitempty" doc:"Required fields still blank"`
	Fields       []string             `json:"step_fields,omitempty" doc:"Field keys collected by the current step"`
}

func sessionResponse(id string, w *wizard.Wizard) SessionResponse {
	members := w.Members()
	if members == nil {
		members = []domain.MemberInput{}
	}
	return SessionResponse{
		ID:           id,
		Step:         int(w.Step()),
		StepName:     w.Step().String(),
		Progress:     w.Progress(),
		Registration: w.Registration(),
		Members:      members,
		Missing:      w.MissingRequired(),
		Fields:       wizard.FieldKeys(w.Step()),
	}
}

type DashboardResponse struct {
	Stats          domain.DashboardStats `json:"stats"`
	RecentFamilies []domain.Family       `json:"recent_families"`
	UpcomingVisits []domain.Visit        `json:"upcoming_visits"`
	PendingTasks   []domain.Task         `json:"pending_tasks"`
}

type MeResponse struct {
	User        domain.User `json:"user"`
	Permissions []string    `json:"permissions"`
	Source      string      `json:"source" enum:"jwt,api_key"`
}

type APIKeyResponse struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	// Key is only returned at creation time.
	Key       string `json:"key"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
}

type EventsPage struct {
	Items []domain.Event `json:"items"`
	// NextBefore pages further back; zero when exhausted.
	NextBefore int64 `json:"next_before,omitempty"`
}

// FileOutput is a binary download.
type FileOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}
