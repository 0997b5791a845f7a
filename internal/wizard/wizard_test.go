package wizard

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"casework/internal/domain"
	"casework/internal/engine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).tryDial"))
}

var codePattern = regexp.MustCompile(`^fam-\d{8}-[A-Z0-9]{6}$`)

type fakeRegistrar struct {
	familyErr  error
	membersErr error
	code       string
	reg        domain.Registration
	members    []domain.MemberInput
	memberCall bool
}

func (f *fakeRegistrar) InsertFamily(_ context.Context, code string, reg domain.Registration) (domain.FamilyRef, error) {
	if f.familyErr != nil {
		return domain.FamilyRef{}, f.familyErr
	}
	f.code, f.reg = code, reg
	return domain.FamilyRef{ID: "fam-id-1", Code: code}, nil
}

func (f *fakeRegistrar) InsertMembers(_ context.Context, familyID string, members []domain.MemberInput) error {
	f.memberCall = true
	f.members = members
	return f.membersErr
}

func testOptions() Options {
	return Options{
		Now:  func() time.Time { return time.Date(2024, 12, 3, 9, 0, 0, 0, time.UTC) },
		Rand: rand.New(rand.NewPCG(7, 11)),
	}
}

func toFinal(w *Wizard) {
	for i := 0; i < TotalSteps; i++ {
		w.Next()
	}
}

func fillRequired(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.SetFields(map[string]string{
		"responsible_name": "Maria Silva",
		"street":           "Rua A",
		"neighborhood":     "Centro",
		"city":             "Springfield",
	}))
}

func TestNavigationIsLinearAndBounded(t *testing.T) {
	w := New(testOptions())
	assert.Equal(t, StepPersonalInfo, w.Step())
	w.Previous()
	assert.Equal(t, StepPersonalInfo, w.Step())
	assert.Equal(t, 20, w.Progress())

	w.Next()
	assert.Equal(t, StepAddressContact, w.Step())
	toFinal(w)
	assert.Equal(t, StepFinal, w.Step())
	assert.Equal(t, 100, w.Progress())
	w.Next()
	assert.Equal(t, StepFinal, w.Step())
	w.Previous()
	assert.Equal(t, StepHousing, w.Step())
}

func TestNavigationDoesNotRequireFields(t *testing.T) {
	w := New(testOptions())
	toFinal(w)
	assert.Equal(t, StepFinal, w.Step())
	assert.Equal(t, []string{"responsible_name", "street", "neighborhood", "city"}, w.MissingRequired())
}

func TestRemoveMiddleMember(t *testing.T) {
	w := New(testOptions())
	for i := 0; i < 3; i++ {
		w.AddMember()
		w.UpdateMember(i, "name", "m"+strconv.Itoa(i))
	}
	w.RemoveMember(1)
	want := []domain.MemberInput{{Name: "m0"}, {Name: "m2"}}
	if diff := cmp.Diff(want, w.Members()); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}
}

func TestMemberOperationsOutOfRangeAreNoOps(t *testing.T) {
	w := New(testOptions())
	w.AddMember()
	w.RemoveMember(5)
	w.RemoveMember(-1)
	w.UpdateMember(3, "name", "x")
	w.UpdateMember(0, "shoe_size", "42")
	w.UpdateMember(0, "age", "7")
	assert.Equal(t, []domain.MemberInput{{Age: "7"}}, w.Members())
}

func TestMemberOperationsMatchSliceModel(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// op -1 adds a member, any other value removes that index.
	properties.Property("add/remove keeps order like a plain slice", prop.ForAll(
		func(ops []int) bool {
			w := New(testOptions())
			var model []string
			next := 0
			for _, op := range ops {
				if op < 0 {
					name := "m" + strconv.Itoa(next)
					next++
					w.AddMember()
					w.UpdateMember(len(model), "name", name)
					model = append(model, name)
					continue
				}
				w.RemoveMember(op)
				if op < len(model) {
					model = append(model[:op], model[op+1:]...)
				}
			}
			got := w.Members()
			if len(got) != len(model) {
				return false
			}
			for i := range got {
				if got[i].Name != model[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-1, 6)),
	))

	properties.TestingRun(t)
}

func TestGenerateFamilyCodeFormat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("code carries the date and six base36 characters", prop.ForAll(
		func(days int, seed uint64) bool {
			now := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, days)
			code := GenerateFamilyCode(now, rand.New(rand.NewPCG(seed, seed^0x9e3779b9)))
			return codePattern.MatchString(code) && code[4:12] == now.Format("20060102")
		},
		gen.IntRange(0, 3650),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestGenerateFamilyCodeCollisionRate(t *testing.T) {
	now := time.Date(2024, 12, 3, 9, 0, 0, 0, time.UTC)
	seen := make(map[string]struct{}, 10000)
	collisions := 0
	for i := 0; i < 10000; i++ {
		code := GenerateFamilyCode(now, nil)
		if _, dup := seen[code]; dup {
			collisions++
		}
		seen[code] = struct{}{}
	}
	assert.Less(t, collisions, 10)
}

func TestSubmitSucceedsWithoutMembers(t *testing.T) {
	w := New(testOptions())
	fillRequired(t, w)
	toFinal(w)
	reg := &fakeRegistrar{}
	res := w.Submit(context.Background(), reg)

	require.True(t, res.Success, res.Error)
	assert.Regexp(t, codePattern, res.Code)
	assert.Equal(t, "fam-20241203-", res.Code[:13])
	assert.Equal(t, DefaultSuccessMessage, res.Message)
	assert.False(t, reg.memberCall)
	assert.Equal(t, "Springfield", reg.reg.City)

	assert.Equal(t, StepSubmitted, w.Step())
	assert.Empty(t, w.Members())
	assert.Equal(t, domain.Registration{}, w.Registration())
}

func TestSubmitSendsOnlyNamedMembers(t *testing.T) {
	w := New(testOptions())
	fillRequired(t, w)
	for i, name := range []string{"Pedro", "  ", "Rosa"} {
		w.AddMember()
		w.UpdateMember(i, "name", name)
		w.UpdateMember(i, "age", "1"+strconv.Itoa(i))
	}
	toFinal(w)
	reg := &fakeRegistrar{}
	res := w.Submit(context.Background(), reg)
	require.True(t, res.Success)
	want := []domain.MemberInput{{Name: "Pedro", Age: "10"}, {Name: "Rosa", Age: "12"}}
	if diff := cmp.Diff(want, reg.members); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitToleratesMemberFailure(t *testing.T) {
	w := New(testOptions())
	fillRequired(t, w)
	w.AddMember()
	w.UpdateMember(0, "name", "Pedro")
	toFinal(w)
	res := w.Submit(context.Background(), &fakeRegistrar{membersErr: errors.New("constraint violated")})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Code)
	assert.Equal(t, StepSubmitted, w.Step())
}

func TestSubmitFieldErrorStaysOnFinalStep(t *testing.T) {
	w := New(testOptions())
	fillRequired(t, w)
	require.NoError(t, w.SetField("city", "  "))
	w.AddMember()
	toFinal(w)
	res := w.Submit(context.Background(), &fakeRegistrar{familyErr: engine.FieldError{Field: "city"}})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "city")
	assert.Empty(t, res.Code)
	assert.Equal(t, StepFinal, w.Step())
	assert.Len(t, w.Members(), 1)
}

func TestSubmitStoreFailureUsesConfiguredMessage(t *testing.T) {
	opts := testOptions()
	opts.FailureMessage = "Falhou."
	w := New(opts)
	fillRequired(t, w)
	toFinal(w)
	res := w.Submit(context.Background(), &fakeRegistrar{familyErr: errors.New("connection refused")})
	assert.Equal(t, Result{Error: "Falhou."}, res)
}

func TestSubmitBeforeFinalStep(t *testing.T) {
	w := New(testOptions())
	fillRequired(t, w)
	reg := &fakeRegistrar{}
	res := w.Submit(context.Background(), reg)
	assert.False(t, res.Success)
	assert.Empty(t, reg.code)
}

func TestSetFieldParsing(t *testing.T) {
	w := New(testOptions())
	require.NoError(t, w.SetFields(map[string]string{
		"address_number":    "12B",
		"number_of_members": "0",
		"age":               "0",
		"formal_income":     "1500,50",
		"informal_income":   "abc",
		"number_of_rooms":   "3 cômodos",
		"paved_street":      "true",
		"risk_location":     "on",
		"cpf":               "   ",
	}))
	r := w.Registration()
	require.NotNil(t, r.AddressNumber)
	assert.Equal(t, "12B", *r.AddressNumber)
	require.NotNil(t, r.NumberOfMembers)
	assert.Equal(t, 0, *r.NumberOfMembers)
	assert.Nil(t, r.Age)
	require.NotNil(t, r.FormalIncome)
	assert.InDelta(t, 1500.50, *r.FormalIncome, 1e-9)
	assert.Nil(t, r.InformalIncome)
	assert.Equal(t, 3, *r.NumberOfRooms)
	assert.True(t, r.PavedStreet)
	assert.False(t, r.RiskLocation)
	assert.Nil(t, r.CPF)

	var unknown UnknownFieldError
	require.ErrorAs(t, w.SetField("number", "1"), &unknown)
	assert.Equal(t, "number", unknown.Key)
}

func TestFieldKeysCoverEachStep(t *testing.T) {
	assert.Contains(t, FieldKeys(StepPersonalInfo), "responsible_name")
	assert.Contains(t, FieldKeys(StepAddressContact), "address_number")
	assert.Empty(t, FieldKeys(StepMembers))
	assert.Contains(t, FieldKeys(StepHousing), "vaccines_up_to_date")
	assert.Equal(t, []string{"final_observations", "immediate_needs"}, FieldKeys(StepFinal))
}

func TestSnapshotRestore(t *testing.T) {
	w := New(testOptions())
	fillRequired(t, w)
	w.AddMember()
	w.UpdateMember(0, "kinship", "Filho")
	w.Next()
	w.Next()
	snap := w.Snapshot()

	restored, err := Restore(snap, testOptions())
	require.NoError(t, err)
	if diff := cmp.Diff(snap, restored.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	restored.UpdateMember(0, "kinship", "Filha")
	assert.Equal(t, "Filho", w.Members()[0].Kinship)

	_, err = Restore(State{Step: 9}, testOptions())
	assert.Error(t, err)
}
