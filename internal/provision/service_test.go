package provision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"stordesk.org/internal/appliance"
	"stordesk.org/internal/journal"
	"stordesk.org/internal/tier"
)

// fakeAppliance records call order and fails the steps it is told to.
type fakeAppliance struct {
	calls []string

	datasets []appliance.DatasetSpec
	users    []appliance.UserSpec
	acls     []appliance.ACLSpec

	datasetErr error
	userErr    error
	aclErr     error
}

func (f *fakeAppliance) CreateDataset(ctx context.Context, spec appliance.DatasetSpec) error {
	f.calls = append(f.calls, "dataset")
	if f.datasetErr != nil {
		return f.datasetErr
	}
	f.datasets = append(f.datasets, spec)
	return nil
}

func (f *fakeAppliance) CreateUser(ctx context.Context, spec appliance.UserSpec) error {
	f.calls = append(f.calls, "user")
	if f.userErr != nil {
		return f.userErr
	}
	f.users = append(f.users, spec)
	return nil
}

func (f *fakeAppliance) SetACL(ctx context.Context, spec appliance.ACLSpec) error {
	f.calls = append(f.calls, "acl")
	if f.aclErr != nil {
		return f.aclErr
	}
	f.acls = append(f.acls, spec)
	return nil
}

type failingJournal struct{ err error }

func (j failingJournal) Record(ctx context.Context, e journal.Entry) error { return j.err }

func newService(app *fakeAppliance, rec journal.Recorder) *Service {
	return NewService(app, rec, "tank", nil)
}

func quotaPtr(gb float64) *float64 { return &gb }

func TestPersonalHappyPath(t *testing.T) {
	app := &fakeAppliance{}
	svc := newService(app, journal.NewInMemory())

	res, err := svc.Provision(context.Background(), Request{
		Identity: "u1",
		Secret:   "p",
		Class:    Personal{QuotaGB: 50},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	want := []string{"dataset", "user", "acl"}
	if len(app.calls) != 3 {
		t.Fatalf("expected exactly 3 remote calls, got %v", app.calls)
	}
	for i, step := range want {
		if app.calls[i] != step {
			t.Fatalf("call order %v, want %v", app.calls, want)
		}
	}

	ds := app.datasets[0]
	if ds.Name != "student-50-100/users/u1" {
		t.Fatalf("unexpected dataset path: %s", ds.Name)
	}
	if ds.Type != "FILESYSTEM" || ds.QuotaBytes != 100*tier.GiB {
		t.Fatalf("unexpected dataset spec: %+v", ds)
	}

	user := app.users[0]
	if user.Home != "/mnt/student-50-100/users/u1" {
		t.Fatalf("unexpected home: %s", user.Home)
	}
	if user.Username != "u1" || user.Password != "p" || !user.GroupCreate {
		t.Fatalf("unexpected user spec: %+v", user)
	}
	if user.Shell != appliance.RestrictedShell {
		t.Fatalf("expected restricted shell, got %s", user.Shell)
	}

	acl := app.acls[0]
	if acl.Path != "/mnt/student-50-100/users/u1" || !acl.DACL {
		t.Fatalf("unexpected acl spec: %+v", acl)
	}
	if len(acl.ACEs) != 1 || acl.ACEs[0].Who != "u1" || acl.ACEs[0].Type != "ALLOW" {
		t.Fatalf("unexpected aces: %+v", acl.ACEs)
	}

	out := res.Outcome
	if !out.DatasetCreated || !out.AccountCreated || !out.ACLApplied || out.Logged {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !strings.Contains(res.Message, "student-50-100/users/u1") || !strings.Contains(res.Message, "ACL") {
		t.Fatalf("message should mention dataset and ACL: %q", res.Message)
	}
}

func TestProjectHappyPath(t *testing.T) {
	app := &fakeAppliance{}
	rec := journal.NewInMemory()
	svc := newService(app, rec)

	res, err := svc.Provision(context.Background(), Request{
		Identity: "u2",
		Secret:   "p",
		Class:    Project{QuotaGB: quotaPtr(200)},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if len(app.calls) != 1 || app.calls[0] != "user" {
		t.Fatalf("expected exactly one account call, got %v", app.calls)
	}
	if app.users[0].Home != "/mnt/tank/users/u2" {
		t.Fatalf("expected default home path, got %s", app.users[0].Home)
	}

	entries := rec.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one journal entry, got %d", len(entries))
	}
	e := entries[0]
	if e.UserName != "u2" || e.RequestedQuotaGB == nil || *e.RequestedQuotaGB != 200 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("entry missing id or timestamp: %+v", e)
	}

	out := res.Outcome
	if out.DatasetCreated || !out.AccountCreated || out.ACLApplied || !out.Logged {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !strings.Contains(res.Message, "recorded") {
		t.Fatalf("message should mention the recorded request: %q", res.Message)
	}
}

func TestDatasetFailureSkipsAccountCreation(t *testing.T) {
	app := &fakeAppliance{datasetErr: &appliance.StatusError{Status: 500, Body: "pool is full"}}
	svc := newService(app, journal.NewInMemory())

	res, err := svc.Provision(context.Background(), Request{
		Identity: "u1",
		Secret:   "p",
		Class:    Personal{QuotaGB: 50},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(app.calls) != 1 || app.calls[0] != "dataset" {
		t.Fatalf("account creation must never run after dataset failure, calls: %v", app.calls)
	}
	var step *StepError
	if !errors.As(err, &step) || step.Step != "dataset" {
		t.Fatalf("expected dataset step error, got %v", err)
	}
	if res.Outcome.DatasetCreated || res.Outcome.AccountCreated {
		t.Fatalf("unexpected outcome: %+v", res.Outcome)
	}
}

func TestMissingParentSurfacesSpecificMessage(t *testing.T) {
	app := &fakeAppliance{datasetErr: &appliance.StatusError{
		Status: 422,
		Body:   `{"message":"Parent dataset student-50-100/users does not exist"}`,
	}}
	svc := newService(app, journal.NewInMemory())

	_, err := svc.Provision(context.Background(), Request{
		Identity: "u1",
		Secret:   "p",
		Class:    Personal{QuotaGB: 50},
	})
	var step *StepError
	if !errors.As(err, &step) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if !strings.Contains(step.Message, "parent dataset") {
		t.Fatalf("expected parent-specific message, got %q", step.Message)
	}
	if !strings.Contains(step.Message, "student-50-100") {
		t.Fatalf("message should name the pool: %q", step.Message)
	}
}

func TestAccountFailureStopsWorkflow(t *testing.T) {
	remote := &appliance.StatusError{Status: 409, Body: "user already exists"}

	// Personal: ACL must not run.
	app := &fakeAppliance{userErr: remote}
	svc := newService(app, journal.NewInMemory())
	res, err := svc.Provision(context.Background(), Request{
		Identity: "u1", Secret: "p", Class: Personal{QuotaGB: 50},
	})
	var step *StepError
	if !errors.As(err, &step) || step.Step != "account" {
		t.Fatalf("expected account step error, got %v", err)
	}
	if !strings.Contains(err.Error(), "user already exists") {
		t.Fatalf("remote error should surface verbatim: %v", err)
	}
	for _, call := range app.calls {
		if call == "acl" {
			t.Fatal("ACL must not be applied after account failure")
		}
	}
	if !res.Outcome.DatasetCreated {
		t.Fatal("dataset was created before the failure and must be reported as such")
	}

	// Project: nothing may be journaled.
	app = &fakeAppliance{userErr: remote}
	rec := journal.NewInMemory()
	svc = newService(app, rec)
	_, err = svc.Provision(context.Background(), Request{
		Identity: "u2", Secret: "p", Class: Project{},
	})
	if !errors.As(err, &step) || step.Step != "account" {
		t.Fatalf("expected account step error, got %v", err)
	}
	if len(rec.Entries()) != 0 {
		t.Fatal("journal entry must not be written after account failure")
	}
}

func TestACLFailureReportsPartialOutcome(t *testing.T) {
	app := &fakeAppliance{aclErr: &appliance.StatusError{Status: 500, Body: "acl service down"}}
	svc := newService(app, journal.NewInMemory())

	res, err := svc.Provision(context.Background(), Request{
		Identity: "u1", Secret: "p", Class: Personal{QuotaGB: 50},
	})
	var step *StepError
	if !errors.As(err, &step) || step.Step != "acl" {
		t.Fatalf("expected acl step error, got %v", err)
	}
	// Dataset and account exist remotely; no compensation happens.
	if !res.Outcome.DatasetCreated || !res.Outcome.AccountCreated || res.Outcome.ACLApplied {
		t.Fatalf("unexpected outcome: %+v", res.Outcome)
	}
	if len(app.calls) != 3 {
		t.Fatalf("expected no additional calls after acl failure, got %v", app.calls)
	}
}

func TestJournalFailureAfterAccountCreation(t *testing.T) {
	app := &fakeAppliance{}
	svc := NewService(app, failingJournal{err: errors.New("sink unavailable")}, "tank", nil)

	res, err := svc.Provision(context.Background(), Request{
		Identity: "u2", Secret: "p", Class: Project{QuotaGB: quotaPtr(10)},
	})
	var step *StepError
	if !errors.As(err, &step) || step.Step != "journal" {
		t.Fatalf("expected journal step error, got %v", err)
	}
	if !res.Outcome.AccountCreated || res.Outcome.Logged {
		t.Fatalf("unexpected outcome: %+v", res.Outcome)
	}
}

func TestJournalNeverSeesSecret(t *testing.T) {
	app := &fakeAppliance{}
	rec := journal.NewInMemory()
	svc := newService(app, rec)

	_, err := svc.Provision(context.Background(), Request{
		Identity: "u2", Secret: "super-secret", Class: Project{},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	for _, e := range rec.Entries() {
		if strings.Contains(e.ID, "super-secret") || strings.Contains(e.UserName, "super-secret") {
			t.Fatalf("secret leaked into journal entry: %+v", e)
		}
	}
}

func TestValidation(t *testing.T) {
	app := &fakeAppliance{}
	svc := newService(app, journal.NewInMemory())

	cases := []Request{
		{Identity: "", Secret: "p", Class: Personal{QuotaGB: 10}},
		{Identity: "u", Secret: "", Class: Personal{QuotaGB: 10}},
		{Identity: "u", Secret: "p", Class: Personal{QuotaGB: 0}},
		{Identity: "u", Secret: "p", Class: Personal{QuotaGB: -5}},
		{Identity: "u", Secret: "p", Class: nil},
	}
	for i, req := range cases {
		if _, err := svc.Provision(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
	if len(app.calls) != 0 {
		t.Fatalf("validation failures must make zero remote calls, got %v", app.calls)
	}
}

func TestOverflowRequestIsCappedNotRejected(t *testing.T) {
	app := &fakeAppliance{}
	svc := newService(app, journal.NewInMemory())

	_, err := svc.Provision(context.Background(), Request{
		Identity: "u1", Secret: "p", Class: Personal{QuotaGB: 4096},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	ds := app.datasets[0]
	if ds.Name != "student-1000/users/u1" || ds.QuotaBytes != tier.TiB {
		t.Fatalf("expected capped tier, got %+v", ds)
	}
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("hunter2")
	if s.String() != "[redacted]" {
		t.Fatalf("String leaked: %s", s.String())
	}
	data, err := s.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Fatalf("MarshalJSON leaked: %s", data)
	}
	if s.Reveal() != "hunter2" {
		t.Fatal("Reveal must return the raw value")
	}
}
