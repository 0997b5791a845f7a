package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"casework/internal/config"
	"casework/internal/domain"
	"casework/internal/engine"
	"casework/internal/repo"
)

type bodyOutput[T any] struct {
	Body T
}

func reply[T any](v T) *bodyOutput[T] { return &bodyOutput[T]{Body: v} }

type idInput struct {
	ID string `path:"id"`
}

func registerFamilies(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-families",
		Method:      http.MethodGet,
		Path:        "/families",
		Summary:     "List families",
		Tags:        []string{"families"},
	}, func(ctx context.Context, input *struct {
		Search  string `query:"search"`
		Status  string `query:"status" doc:"Family status or all"`
		Urgency string `query:"urgency" doc:"Urgency level or all"`
		Limit   int    `query:"limit"`
	}) (*bodyOutput[[]domain.Family], error) {
		if _, err := requirePermission(ctx, e, config.PermFamiliesRead); err != nil {
			return nil, err
		}
		families, err := e.ListFamilies(ctx, engine.FamilyQuery{
			Search:  input.Search,
			Status:  input.Status,
			Urgency: input.Urgency,
			Limit:   normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(families), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-family",
		Method:      http.MethodGet,
		Path:        "/families/{id}",
		Summary:     "Get a family by id or public code",
		Tags:        []string{"families"},
	}, func(ctx context.Context, input *idInput) (*bodyOutput[domain.FamilyDetails], error) {
		if _, err := requirePermission(ctx, e, config.PermFamiliesRead); err != nil {
			return nil, err
		}
		d, err := e.GetFamily(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(d), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-family-status",
		Method:      http.MethodPatch,
		Path:        "/families/{id}/status",
		Summary:     "Change case status and urgency",
		Tags:        []string{"families"},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateFamilyStatusRequest
	}) (*bodyOutput[domain.Family], error) {
		p, err := requirePermission(ctx, e, config.PermFamiliesWrite)
		if err != nil {
			return nil, err
		}
		f, err := e.UpdateFamilyStatus(ctx, input.ID, input.Body.Status, input.Body.Urgency, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(f), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-family",
		Method:      http.MethodPut,
		Path:        "/families/{id}/assignee",
		Summary:     "Assign a family to a caseworker",
		Tags:        []string{"families"},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body AssignFamilyRequest
	}) (*bodyOutput[domain.Family], error) {
		p, err := requirePermission(ctx, e, config.PermFamiliesAssign)
		if err != nil {
			return nil, err
		}
		f, err := e.AssignFamily(ctx, input.ID, input.Body.UserID, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(f), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-attendance",
		Method:        http.MethodPost,
		Path:          "/families/{id}/attendance",
		Summary:       "Log an attendance entry",
		Tags:          []string{"families"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body CreateAttendanceRequest
	}) (*bodyOutput[domain.AttendanceEntry], error) {
		p, err := requirePermission(ctx, e, config.PermAttendanceLog)
		if err != nil {
			return nil, err
		}
		entry, err := e.AddAttendance(ctx, engine.AttendanceOptions{
			FamilyID:    input.ID,
			UserID:      input.Body.UserID,
			Description: input.Body.Description,
			Urgency:     input.Body.Urgency,
			Notes:       input.Body.Notes,
		}, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(entry), nil
	})
}

func registerVisits(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-visits",
		Method:      http.MethodGet,
		Path:        "/visits",
		Summary:     "List visits",
		Tags:        []string{"visits"},
	}, func(ctx context.Context, input *struct {
		Search string `query:"search"`
		Status string `query:"status"`
		Type   string `query:"type"`
	}) (*bodyOutput[[]domain.Visit], error) {
		if _, err := requirePermission(ctx, e, config.PermVisitsRead); err != nil {
			return nil, err
		}
		visits, err := e.ListVisits(ctx, engine.VisitQuery{Search: input.Search, Status: input.Status, Type: input.Type})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(visits), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-visit",
		Method:        http.MethodPost,
		Path:          "/visits",
		Summary:       "Schedule a visit",
		Tags:          []string{"visits"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateVisitRequest
	}) (*bodyOutput[domain.Visit], error) {
		p, err := requirePermission(ctx, e, config.PermVisitsWrite)
		if err != nil {
			return nil, err
		}
		at, err := time.Parse(time.RFC3339, input.Body.ScheduledAt)
		if err != nil {
			return nil, handleError(engine.InvalidValueError{Field: "scheduled_at", Value: input.Body.ScheduledAt})
		}
		v, err := e.CreateVisit(ctx, engine.VisitCreateOptions{
			FamilyID:    input.Body.FamilyID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			VisitType:   input.Body.VisitType,
			ScheduledAt: at,
			AssignedTo:  input.Body.AssignedTo,
		}, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(v), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-visit-status",
		Method:      http.MethodPatch,
		Path:        "/visits/{id}/status",
		Summary:     "Change visit status",
		Tags:        []string{"visits"},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateVisitStatusRequest
	}) (*bodyOutput[domain.Visit], error) {
		p, err := requirePermission(ctx, e, config.PermVisitsWrite)
		if err != nil {
			return nil, err
		}
		v, err := e.UpdateVisitStatus(ctx, input.ID, input.Body.Status, input.Body.Notes, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(v), nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Tags:        []string{"tasks"},
	}, func(ctx context.Context, input *struct {
		Search   string `query:"search"`
		Status   string `query:"status"`
		Priority string `query:"priority"`
	}) (*bodyOutput[[]domain.Task], error) {
		if _, err := requirePermission(ctx, e, config.PermTasksRead); err != nil {
			return nil, err
		}
		tasks, err := e.ListTasks(ctx, engine.TaskQuery{Search: input.Search, Status: input.Status, Priority: input.Priority})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(tasks), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a task",
		Tags:          []string{"tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest
	}) (*bodyOutput[domain.Task], error) {
		p, err := requirePermission(ctx, e, config.PermTasksWrite)
		if err != nil {
			return nil, err
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			FamilyID:    input.Body.FamilyID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    input.Body.Priority,
			DueDate:     input.Body.DueDate,
			AssignedTo:  input.Body.AssignedTo,
		}, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/status",
		Summary:     "Change task status",
		Tags:        []string{"tasks"},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateTaskStatusRequest
	}) (*bodyOutput[domain.Task], error) {
		p, err := requirePermission(ctx, e, config.PermTasksWrite)
		if err != nil {
			return nil, err
		}
		t, err := e.UpdateTaskStatus(ctx, input.ID, input.Body.Status, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List active users",
		Tags:        []string{"users"},
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[[]domain.User], error) {
		if _, err := requirePermission(ctx, e, config.PermUsersRead); err != nil {
			return nil, err
		}
		users, err := e.ActiveUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(users), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create a user",
		Tags:          []string{"users"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest
	}) (*bodyOutput[domain.User], error) {
		p, err := requirePermission(ctx, e, config.PermUsersWrite)
		if err != nil {
			return nil, err
		}
		u, err := e.CreateUser(ctx, domain.User{Name: input.Body.Name, Email: input.Body.Email, Role: input.Body.Role}, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(u), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/users/{id}/api-keys",
		Summary:       "Issue an API key",
		Description:   "Users may issue keys for themselves; other users need users.write.",
		Tags:          []string{"users"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body CreateAPIKeyRequest
	}) (*bodyOutput[APIKeyResponse], error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if p.ActorID != input.ID {
			if _, err := requirePermission(ctx, e, config.PermUsersWrite); err != nil {
				return nil, err
			}
		}
		key, plain, err := e.CreateAPIKey(ctx, input.ID, input.Body.Name, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(APIKeyResponse{ID: key.ID, UserID: key.UserID, Name: key.Name, Key: plain, CreatedAt: key.CreatedAt}), nil
	})
}

func registerDashboard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Dashboard counters and short lists",
		Tags:        []string{"dashboard"},
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[DashboardResponse], error) {
		if _, err := requirePermission(ctx, e, config.PermDashboardRead); err != nil {
			return nil, err
		}
		var out DashboardResponse
		var err error
		if out.Stats, err = e.DashboardStats(ctx); err != nil {
			return nil, handleError(err)
		}
		if out.RecentFamilies, err = e.RecentFamilies(ctx); err != nil {
			return nil, handleError(err)
		}
		if out.UpcomingVisits, err = e.UpcomingVisits(ctx); err != nil {
			return nil, handleError(err)
		}
		if out.PendingTasks, err = e.PendingTasks(ctx); err != nil {
			return nil, handleError(err)
		}
		return reply(out), nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit log, newest first",
		Tags:        []string{"events"},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Before     int64  `query:"before"`
		Limit      int    `query:"limit"`
	}) (*bodyOutput[EventsPage], error) {
		if _, err := requirePermission(ctx, e, config.PermEventsRead); err != nil {
			return nil, err
		}
		limit := normalizeLimit(input.Limit)
		items, err := e.Repo.LatestEvents(ctx, repo.EventFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Before:     input.Before,
			Limit:      limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		page := EventsPage{Items: items}
		if page.Items == nil {
			page.Items = []domain.Event{}
		}
		if len(items) == limit {
			page.NextBefore = items[len(items)-1].ID
		}
		return reply(page), nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "The authenticated user",
		Tags:        []string{"users"},
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[MeResponse], error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.Repo.GetUser(ctx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		_, perms, err := e.Auth.UserPermissions(ctx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		for _, extra := range p.Permissions {
			if !domain.Contains(perms, extra) {
				perms = append(perms, extra)
			}
		}
		if perms == nil {
			perms = []string{}
		}
		return reply(MeResponse{User: u, Permissions: perms, Source: p.Source}), nil
	})
}

func registerDevAuth(api huma.API, e engine.Engine, cfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "Mint a token for an existing user (development only)",
		Tags:        []string{"auth"},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest
	}) (*bodyOutput[TokenResponse], error) {
		u, err := e.Repo.GetUser(ctx, input.Body.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		now := e.Now()
		ttl := cfg.TokenTTL
		if ttl <= 0 {
			ttl = 12 * time.Hour
		}
		token, err := signToken(cfg.JWTSecret, u.ID, u.Role, ttl, now)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(TokenResponse{Token: token, ExpiresAt: now.Add(ttl).UTC().Format(time.RFC3339)}), nil
	})
}
