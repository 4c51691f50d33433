// Package provision implements the storage provisioning workflow: tier
// selection, ordered remote-resource creation and per-step outcome tracking.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stordesk.org/internal/appliance"
	"stordesk.org/internal/audit"
	"stordesk.org/internal/ids"
	"stordesk.org/internal/journal"
	"stordesk.org/internal/obs"
	"stordesk.org/internal/stream"
	"stordesk.org/internal/tier"
)

// Appliance is the subset of the appliance client the workflow needs.
type Appliance interface {
	CreateDataset(ctx context.Context, spec appliance.DatasetSpec) error
	CreateUser(ctx context.Context, spec appliance.UserSpec) error
	SetACL(ctx context.Context, spec appliance.ACLSpec) error
}

// Service runs the provisioning workflow. Steps execute strictly in order
// with no retries; a failed step aborts the remainder and nothing created by
// earlier steps is deleted.
type Service struct {
	appliance   Appliance
	journal     journal.Recorder
	defaultPool string
	stream      *stream.Stream
}

// NewService wires the workflow. stream may be nil.
func NewService(a Appliance, j journal.Recorder, defaultPool string, s *stream.Stream) *Service {
	return &Service{
		appliance:   a,
		journal:     j,
		defaultPool: defaultPool,
		stream:      s,
	}
}

// Provision executes the workflow for one request. On failure the returned
// Result still carries the outcome flags of the steps that completed, since
// those resources exist remotely regardless of the reported failure.
func (s *Service) Provision(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		obs.ObserveProvision(className(req.Class), "invalid")
		return Result{}, err
	}

	var res Result
	var err error
	switch c := req.Class.(type) {
	case Personal:
		res, err = s.provisionPersonal(ctx, req, c)
	case Project:
		res, err = s.provisionProject(ctx, req, c)
	}

	obs.ObserveProvision(req.Class.Name(), outcomeLabel(err))
	return res, err
}

// provisionPersonal: tier → dataset → account → ACL.
func (s *Service) provisionPersonal(ctx context.Context, req Request, c Personal) (Result, error) {
	var out Outcome

	asn := tier.Select(c.QuotaGB)
	if asn.Overflow(c.QuotaGB) {
		// Capped, not rejected. Flagged for review.
		_ = audit.LogEvent(ctx, "provision.tier.overflow", map[string]any{
			"identity":     req.Identity,
			"requested_gb": c.QuotaGB,
			"pool":         asn.Pool,
		})
	}

	datasetPath := asn.Pool + "/users/" + req.Identity
	mountPath := appliance.MountPath(datasetPath)

	if err := s.appliance.CreateDataset(ctx, appliance.NewDataset(datasetPath, asn.QuotaBytes)); err != nil {
		// Account creation is never attempted when the dataset step fails.
		if appliance.IsMissingParent(err) {
			return Result{Outcome: out}, &StepError{
				Step:    "dataset",
				Message: fmt.Sprintf("parent dataset for pool %q does not exist on the appliance", asn.Pool),
				Err:     err,
			}
		}
		return Result{Outcome: out}, &StepError{Step: "dataset", Message: "dataset creation failed", Err: err}
	}
	out.DatasetCreated = true
	_ = audit.LogEvent(ctx, "provision.dataset.create", map[string]any{
		"path":        datasetPath,
		"pool":        asn.Pool,
		"quota_bytes": asn.QuotaBytes,
	})

	if err := s.createAccount(ctx, req, mountPath); err != nil {
		return Result{Outcome: out}, err
	}
	out.AccountCreated = true

	if err := s.appliance.SetACL(ctx, appliance.OwnerACL(mountPath, req.Identity)); err != nil {
		return Result{Outcome: out}, &StepError{Step: "acl", Message: "access control setup failed", Err: err}
	}
	out.ACLApplied = true
	_ = audit.LogEvent(ctx, "provision.acl.apply", map[string]any{
		"path":     mountPath,
		"identity": req.Identity,
	})

	s.publish(req, asn.Pool, asn.QuotaBytes)
	return Result{
		Message: fmt.Sprintf("dataset %s created with a %d GiB quota, account %s provisioned, ACL applied on %s",
			datasetPath, asn.QuotaBytes/tier.GiB, req.Identity, mountPath),
		Outcome: out,
	}, nil
}

// provisionProject: account → journal entry. No dataset, no ACL.
func (s *Service) provisionProject(ctx context.Context, req Request, c Project) (Result, error) {
	var out Outcome

	homePath := appliance.MountPath(s.defaultPool + "/users/" + req.Identity)
	if err := s.createAccount(ctx, req, homePath); err != nil {
		return Result{Outcome: out}, err
	}
	out.AccountCreated = true

	entry := journal.Entry{
		ID:               ids.New(),
		UserName:         req.Identity,
		RequestedQuotaGB: c.QuotaGB,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		// The account already exists remotely; the outcome records that.
		return Result{Outcome: out}, &StepError{Step: "journal", Message: "recording the project request failed", Err: err}
	}
	out.Logged = true
	_ = audit.LogEvent(ctx, "provision.request.recorded", map[string]any{
		"entry_id":  entry.ID,
		"user_name": entry.UserName,
	})

	s.publish(req, "", 0)
	return Result{
		Message: fmt.Sprintf("project storage request for %s recorded, account created", req.Identity),
		Outcome: out,
	}, nil
}

func (s *Service) createAccount(ctx context.Context, req Request, homePath string) error {
	spec := appliance.UserSpec{
		Username:    req.Identity,
		Password:    req.Secret.Reveal(),
		FullName:    req.Identity,
		Home:        homePath,
		Shell:       appliance.RestrictedShell,
		GroupCreate: true,
	}
	if err := s.appliance.CreateUser(ctx, spec); err != nil {
		return &StepError{Step: "account", Message: "account creation failed", Err: err}
	}
	_ = audit.LogEvent(ctx, "provision.account.create", map[string]any{
		"username": req.Identity,
		"home":     homePath,
	})
	return nil
}

func (s *Service) publish(req Request, pool string, quotaBytes int64) {
	if s.stream == nil {
		return
	}
	s.stream.Publish(stream.Event{
		Identity:   req.Identity,
		UsageClass: req.Class.Name(),
		Pool:       pool,
		QuotaBytes: quotaBytes,
		Timestamp:  time.Now().UTC(),
	})
}

func className(c Class) string {
	if c == nil {
		return "unknown"
	}
	return c.Name()
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var step *StepError
	if errors.As(err, &step) {
		return step.Step
	}
	return "invalid"
}
