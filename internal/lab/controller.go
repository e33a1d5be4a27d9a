package lab

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kamathanirudh/labstack/internal/compute"
	"github.com/kamathanirudh/labstack/internal/events"
	"github.com/kamathanirudh/labstack/internal/metrics"
	"github.com/kamathanirudh/labstack/internal/provision"
	"github.com/kamathanirudh/labstack/internal/store"
	"github.com/kamathanirudh/labstack/internal/template"
	"github.com/kamathanirudh/labstack/pkg/types"
)

// ErrCorruptRecord is returned when a stored record lacks a resource handle.
var ErrCorruptRecord = errors.New("lab record has no resource handle")

// Snapshot is the caller-visible view of a lab's state.
type Snapshot struct {
	Status    types.LabStatus
	AccessURL *string
}

// Controller owns the lab lifecycle state machine: create, lazy readiness
// reconciliation on status reads, and termination. Safe for concurrent use;
// the record store's conditional update is the only ordering primitive, so
// operations on the same lab may race and converge on identical writes.
type Controller struct {
	provisioner *provision.Provisioner
	store       store.RecordStore
	compute     compute.API
	publisher   *events.Publisher
}

// Option configures a Controller.
type Option func(*Controller)

// WithEvents attaches a lifecycle event publisher. A nil publisher disables
// event emission.
func WithEvents(p *events.Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// NewController creates a lifecycle controller.
func NewController(p *provision.Provisioner, st store.RecordStore, api compute.API, opts ...Option) *Controller {
	c := &Controller{
		provisioner: p,
		store:       st,
		compute:     api,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create launches a new lab and persists its pending record. The lab ID is
// generated before any external resource exists; the record is written only
// after the VM create succeeds, so a provisioning failure leaves no orphan
// bookkeeping. A record-write failure after a successful launch leaves an
// unrecorded VM behind; the boot-time TTL shutdown still reclaims it.
func (c *Controller) Create(ctx context.Context, labType string, ttlMinutes int) (string, error) {
	labID := uuid.NewString()

	start := time.Now()
	res, err := c.provisioner.Launch(ctx, labType, ttlMinutes)
	if err != nil {
		if !errors.Is(err, template.ErrUnknownTemplate) {
			metrics.ComputeErrorsTotal.WithLabelValues("create").Inc()
		}
		return "", err
	}
	metrics.ProvisionDuration.WithLabelValues(labType).Observe(time.Since(start).Seconds())

	rec := &types.LabRecord{
		LabID:      labID,
		LabType:    labType,
		ResourceID: res.ResourceID,
		Port:       res.Port,
		Status:     types.LabStatusPending,
		TTLMinutes: ttlMinutes,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.store.Put(ctx, rec); err != nil {
		log.Printf("lab: record write failed for %s, instance %s left to its TTL: %v", labID, res.ResourceID, err)
		return "", fmt.Errorf("persist lab record %s: %w", labID, err)
	}

	metrics.LabsCreatedTotal.WithLabelValues(labType).Inc()
	c.publisher.Publish(events.Event{Type: events.TypeCreated, LabID: labID, LabType: labType})
	return labID, nil
}

// Status returns the lab's current state, lazily reconciling pending records
// against the real VM state. Ready and terminated records are returned from
// the stored snapshot without touching the compute API. A pending record is
// reconciled: if the VM is running with a public address, the record is
// conditionally transitioned to ready exactly once; duplicate transitions
// from racing readers converge on the same URL. An inspection failure is an
// infra error and never changes stored state.
func (c *Controller) Status(ctx context.Context, labID string) (*Snapshot, error) {
	rec, err := c.store.Get(ctx, labID)
	if err != nil {
		return nil, err
	}
	if rec.Status != types.LabStatusPending {
		return &Snapshot{Status: rec.Status, AccessURL: rec.AccessURL}, nil
	}

	state, err := c.compute.DescribeInstance(ctx, rec.ResourceID)
	if err != nil {
		metrics.ComputeErrorsTotal.WithLabelValues("describe").Inc()
		return nil, fmt.Errorf("inspect instance %s: %w", rec.ResourceID, err)
	}
	if state.PowerState != compute.PowerStateRunning || state.PublicAddress == "" {
		return &Snapshot{Status: types.LabStatusPending}, nil
	}

	accessURL := fmt.Sprintf("http://%s:%d", state.PublicAddress, rec.Port)
	if err := c.store.MarkReady(ctx, labID, accessURL); err != nil {
		return nil, fmt.Errorf("mark lab %s ready: %w", labID, err)
	}

	metrics.LabsReadyTotal.WithLabelValues(rec.LabType).Inc()
	c.publisher.Publish(events.Event{Type: events.TypeReady, LabID: labID, LabType: rec.LabType, AccessURL: accessURL})
	return &Snapshot{Status: types.LabStatusReady, AccessURL: &accessURL}, nil
}

// Terminate requests VM termination and then marks the record terminated.
// The record is only updated after the compute API accepts the termination:
// if the VM survives, the record must not claim otherwise. Terminating an
// already-terminated lab is an idempotent no-op write.
func (c *Controller) Terminate(ctx context.Context, labID string) error {
	rec, err := c.store.Get(ctx, labID)
	if err != nil {
		return err
	}
	if rec.ResourceID == "" {
		return fmt.Errorf("%w: %s", ErrCorruptRecord, labID)
	}

	if err := c.compute.TerminateInstance(ctx, rec.ResourceID); err != nil {
		metrics.ComputeErrorsTotal.WithLabelValues("terminate").Inc()
		return fmt.Errorf("terminate instance %s: %w", rec.ResourceID, err)
	}

	if err := c.store.MarkTerminated(ctx, labID); err != nil {
		return fmt.Errorf("mark lab %s terminated: %w", labID, err)
	}

	metrics.LabsTerminatedTotal.Inc()
	c.publisher.Publish(events.Event{Type: events.TypeTerminated, LabID: labID, LabType: rec.LabType})
	return nil
}
