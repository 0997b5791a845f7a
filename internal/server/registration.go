package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"casework/internal/engine"
	"casework/internal/wizard"
)

type wizardHandlers struct {
	engine   engine.Engine
	sessions wizard.SessionStore
	logger   *zap.Logger
}

func (h wizardHandlers) options() wizard.Options {
	cfg := h.engine.Settings()
	return wizard.Options{
		SuccessMessage: cfg.Registration.SuccessMessage,
		FailureMessage: cfg.Registration.FailureMessage,
		Logger:         h.logger,
		Now:            h.engine.Now,
	}
}

func (h wizardHandlers) load(ctx context.Context, id string) (*wizard.Wizard, error) {
	state, err := h.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return wizard.Restore(state, h.options())
}

// mutate loads session id, applies fn and saves the result.
func (h wizardHandlers) mutate(ctx context.Context, id string, fn func(w *wizard.Wizard) error) (*sessionOutput, error) {
	w, err := h.load(ctx, id)
	if err != nil {
		return nil, handleError(err)
	}
	if err := fn(w); err != nil {
		return nil, handleError(err)
	}
	if err := h.sessions.Save(ctx, id, w.Snapshot()); err != nil {
		return nil, handleError(err)
	}
	return &sessionOutput{Body: sessionResponse(id, w)}, nil
}

// submit sends a wizard sitting on the final step and maps the outcome.
func (h wizardHandlers) submit(ctx context.Context, w *wizard.Wizard) (*submitOutput, error) {
	if w.Step() != wizard.StepFinal {
		return nil, newAPIError(http.StatusConflict, "not_final_step", wizard.ErrNotFinalStep.Error(), map[string]any{"step": int(w.Step())})
	}
	res := w.Submit(ctx, h.engine)
	if !res.Success {
		return nil, newAPIError(http.StatusUnprocessableEntity, "registration_failed", res.Error, map[string]any{"missing_required": w.MissingRequired()})
	}
	return &submitOutput{Status: http.StatusCreated, Body: res}, nil
}

type sessionIDInput struct {
	ID string `path:"id"`
}

type memberInput struct {
	ID    string `path:"id"`
	Index int    `path:"index" minimum:"0"`
}

type sessionOutput struct {
	Body SessionResponse
}

type submitOutput struct {
	Status int
	Body   wizard.Result
}

func registerRegistrations(api huma.API, h wizardHandlers) {
	huma.Register(api, huma.Operation{
		OperationID: "submit-registration",
		Method:      http.MethodPost,
		Path:        "/registrations",
		Summary:     "Register a family in one request",
		Tags:        []string{"registrations"},
	}, func(ctx context.Context, input *struct {
		Body RegistrationRequest
	}) (*submitOutput, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		w, err := wizard.Restore(wizard.State{Step: wizard.StepFinal, Members: input.Body.Members}, h.options())
		if err != nil {
			return nil, handleError(err)
		}
		if err := w.SetFields(input.Body.Fields); err != nil {
			return nil, handleError(err)
		}
		return h.submit(ctx, w)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-registration-session",
		Method:        http.MethodPost,
		Path:          "/registrations/sessions",
		Summary:       "Start a registration wizard session",
		Tags:          []string{"registrations"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, _ *struct{}) (*sessionOutput, error) {
		id := uuid.NewString()
		w := wizard.New(h.options())
		if err := h.sessions.Save(ctx, id, w.Snapshot()); err != nil {
			return nil, handleError(err)
		}
		h.logger.Debug("wizard session started", zap.String("session_id", id))
		return &sessionOutput{Body: sessionResponse(id, w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-registration-session",
		Method:      http.MethodGet,
		Path:        "/registrations/sessions/{id}",
		Summary:     "Get wizard state",
		Tags:        []string{"registrations"},
	}, func(ctx context.Context, input *sessionIDInput) (*sessionOutput, error) {
		w, err := h.load(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &sessionOutput{Body: sessionResponse(input.ID, w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-registration-session",
		Method:        http.MethodDelete,
		Path:          "/registrations/sessions/{id}",
		Summary:       "Discard a wizard session",
		Tags:          []string{"registrations"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *sessionIDInput) (*struct{}, error) {
		if err := h.sessions.Delete(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-registration-fields",
		Method:      http.MethodPatch,
		Path:        "/registrations/sessions/{id}/fields",
		Summary:     "Set form fields",
		Tags:        []string{"registrations"},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body SetFieldsRequest
	}) (*sessionOutput, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		return h.mutate(ctx, input.ID, func(w *wizard.Wizard) error {
			return w.SetFields(input.Body.Fields)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "next-registration-step",
		Method:      http.MethodPost,
		Path:        "/registrations/sessions/{id}/next",
		Summary:     "Advance one step",
		Tags:        []string{"registrations"},
	}, func(ctx context.Context, input *sessionIDInput) (*sessionOutput, error) {
		return h.mutate(ctx, input.ID, func(w *wizard.Wizard) error {
			w.Next()
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "previous-registration-step",
		Method:      http.MethodPost,
		Path:        "/registrations/sessions/{id}/previous",
		Summary:     "Go back one step",
		Tags:        []string{"registrations"},
	}, func(ctx context.Context, input *sessionIDInput) (*sessionOutput, error) {
		return h.mutate(ctx, input.ID, func(w *wizard.Wizard) error {
			w.Previous()
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-registration-member",
		Method:      http.MethodPost,
		Path:        "/registrations/sessions/{id}/members",
		Summary:     "Append an empty member row",
		Tags:        []string{"registrations"},
	}, func(ctx context.Context, input *sessionIDInput) (*sessionOutput, error) {
		return h.mutate(ctx, input.ID, func(w *wizard.Wizard) error {
			w.AddMember()
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-registration-member",
		Method:      http.MethodPatch,
		Path:        "/registrations/sessions/{id}/members/{index}",
		Summary:     "Edit a member row",
		Tags:        []string{"registrations"},
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Index int    `path:"index" minimum:"0"`
		Body  UpdateMemberRequest
	}) (*sessionOutput, error) {
		return h.mutate(ctx, input.ID, func(w *wizard.Wizard) error {
			if input.Body.Name != nil {
				w.UpdateMember(input.Index, "name", *input.Body.Name)
			}
			if input.Body.Kinship != nil {
				w.UpdateMember(input.Index, "kinship", *input.Body.Kinship)
			}
			if input.Body.Age != nil {
				w.UpdateMember(input.Index, "age", *input.Body.Age)
			}
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-registration-member",
		Method:      http.MethodDelete,
		Path:        "/registrations/sessions/{id}/members/{index}",
		Summary:     "Remove a member row",
		Tags:        []string{"registrations"},
	}, func(ctx context.Context, input *memberInput) (*sessionOutput, error) {
		return h.mutate(ctx, input.ID, func(w *wizard.Wizard) error {
			w.RemoveMember(input.Index)
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-registration-session",
		Method:      http.MethodPost,
		Path:        "/registrations/sessions/{id}/submit",
		Summary:     "Submit the registration",
		Tags:        []string{"registrations"},
	}, func(ctx context.Context, input *sessionIDInput) (*submitOutput, error) {
		w, err := h.load(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		out, err := h.submit(ctx, w)
		if err != nil {
			return nil, err
		}
		if err := h.sessions.Save(ctx, input.ID, w.Snapshot()); err != nil {
			h.logger.Warn("wizard session not saved after submit", zap.String("session_id", input.ID), zap.Error(err))
		}
		return out, nil
	})
}
