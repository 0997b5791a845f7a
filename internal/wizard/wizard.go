package wizard

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"casework/internal/domain"
	"casework/internal/engine"
)

// Step is a wizard screen. StepSubmitted is terminal.
type Step int

const (
	StepPersonalInfo Step = iota + 1
	StepAddressContact
	StepMembers
	StepHousing
	StepFinal
	StepSubmitted
)

// TotalSteps counts the data-entry steps.
const TotalSteps = 5

func (s Step) String() string {
	switch s {
	case StepPersonalInfo:
		return "personal_info"
	case StepAddressContact:
		return "address_contact"
	case StepMembers:
		return "members"
	case StepHousing:
		return "housing"
	case StepFinal:
		return "final"
	case StepSubmitted:
		return "submitted"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Registrar persists a finished registration.
type Registrar interface {
	InsertFamily(ctx context.Context, code string, reg domain.Registration) (domain.FamilyRef, error)
	InsertMembers(ctx context.Context, familyID string, members []domain.MemberInput) error
}

// Result is the outcome of one submission attempt.
type Result struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

const (
	DefaultSuccessMessage = "Cadastro realizado com sucesso! Sua família foi registrada e receberá acompanhamento em breve."
	DefaultFailureMessage = "Erro ao salvar dados da família. Tente novamente."
)

var ErrNotFinalStep = errors.New("o cadastro só pode ser enviado na última etapa")

type Options struct {
	SuccessMessage string
	FailureMessage string
	Logger         *zap.Logger
	Now            func() time.Time
	// Rand drives code generation; nil uses the shared source.
	Rand *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.SuccessMessage == "" {
		o.SuccessMessage = DefaultSuccessMessage
	}
	if o.FailureMessage == "" {
		o.FailureMessage = DefaultFailureMessage
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Wizard accumulates a family registration over five steps. A Wizard
// belongs to one form session and is not safe for concurrent use.
type Wizard struct {
	step    Step
	reg     domain.Registration
	members []domain.MemberInput
	opts    Options
}

func New(opts Options) *Wizard {
	return &Wizard{step: StepPersonalInfo, opts: opts.withDefaults()}
}

func (w *Wizard) Step() Step { return w.step }

func (w *Wizard) Registration() domain.Registration { return w.reg }

func (w *Wizard) Members() []domain.MemberInput {
	return append([]domain.MemberInput(nil), w.members...)
}

// Progress is the completed share of the data-entry steps, in percent.
func (w *Wizard) Progress() int {
	if w.step >= StepSubmitted {
		return 100
	}
	return int(float64(w.step)/TotalSteps*100 + 0.5)
}

// Next advances one step. Required fields are not checked here; they are
// validated when the registration is persisted.
func (w *Wizard) Next() {
	if w.step < StepFinal {
		w.step++
	}
}

func (w *Wizard) Previous() {
	if w.step > StepPersonalInfo && w.step <= StepFinal {
		w.step--
	}
}

func (w *Wizard) AddMember() {
	w.members = append(w.members, domain.MemberInput{})
}

// RemoveMember deletes the member at i, keeping the order of the rest.
func (w *Wizard) RemoveMember(i int) {
	if i < 0 || i >= len(w.members) {
		return
	}
	w.members = append(w.members[:i], w.members[i+1:]...)
}

// UpdateMember sets field ("name", "kinship" or "age") of member i.
func (w *Wizard) UpdateMember(i int, field, value string) {
	if i < 0 || i >= len(w.members) {
		return
	}
	m := &w.members[i]
	switch field {
	case "name":
		m.Name = value
	case "kinship":
		m.Kinship = value
	case "age":
		m.Age = value
	}
}

// Reset discards everything and returns to the first step.
func (w *Wizard) Reset() {
	w.step = StepPersonalInfo
	w.reg = domain.Registration{}
	w.members = nil
}

// Submit hands the registration to r. Members are stored after the family
// and their failure does not fail the submission.
func (w *Wizard) Submit(ctx context.Context, r Registrar) Result {
	if w.step != StepFinal {
		return Result{Error: ErrNotFinalStep.Error()}
	}
	log := w.opts.Logger
	code := GenerateFamilyCode(w.opts.Now(), w.opts.Rand)
	ref, err := r.InsertFamily(ctx, code, w.reg)
	if err != nil {
		log.Error("family insertion failed", zap.String("code", code), zap.Error(err))
		return Result{Error: w.failureMessage(err)}
	}
	if members := w.filledMembers(); len(members) > 0 {
		if err := r.InsertMembers(ctx, ref.ID, members); err != nil {
			log.Error("members insertion failed", zap.String("family_id", ref.ID), zap.Int("members", len(members)), zap.Error(err))
		}
	}
	log.Info("registration submitted", zap.String("family_id", ref.ID), zap.String("code", ref.Code))
	w.Reset()
	w.step = StepSubmitted
	return Result{Success: true, Code: ref.Code, Message: w.opts.SuccessMessage}
}

func (w *Wizard) failureMessage(err error) string {
	var fe engine.FieldError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return w.opts.FailureMessage
}

func (w *Wizard) filledMembers() []domain.MemberInput {
	var out []domain.MemberInput
	for _, m := range w.members {
		if isBlank(m.Name) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// State is the serialisable form of a wizard session.
type State struct {
	Step         Step                 `json:"step"`
	Registration domain.Registration  `json:"registration"`
	Members      []domain.MemberInput `json:"members"`
}

func (w *Wizard) Snapshot() State {
	return State{Step: w.step, Registration: w.reg, Members: w.Members()}
}

// Restore rebuilds a wizard from a snapshot.
func Restore(s State, opts Options) (*Wizard, error) {
	if s.Step < StepPersonalInfo || s.Step > StepSubmitted {
		return nil, fmt.Errorf("invalid wizard step %d", int(s.Step))
	}
	w := New(opts)
	w.step = s.Step
	w.reg = s.Registration
	w.members = append([]domain.MemberInput(nil), s.Members...)
	return w, nil
}
