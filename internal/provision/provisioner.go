package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/kamathanirudh/labstack/internal/compute"
	"github.com/kamathanirudh/labstack/internal/template"
	"github.com/kamathanirudh/labstack/pkg/types"
)

// Provisioner turns a lab type and TTL into exactly one self-terminating VM.
type Provisioner struct {
	registry *template.Registry
	compute  compute.API
}

// Result is the handle for a freshly launched lab VM.
type Result struct {
	ResourceID string
	Port       int
}

// New creates a Provisioner.
func New(registry *template.Registry, api compute.API) *Provisioner {
	return &Provisioner{
		registry: registry,
		compute:  api,
	}
}

// RenderBootPayload produces the user-data script that starts the container
// runtime, pulls the template image, runs it with the template's port mapping,
// and schedules an unconditional OS shutdown ttlMinutes from boot. The
// shutdown is armed once at boot and never re-armed, so the TTL holds even if
// the control plane is down. TTL is measured from VM boot, not from request
// receipt.
func RenderBootPayload(tmpl types.LabTemplate, ttlMinutes int) string {
	var sb strings.Builder
	sb.WriteString("#!/bin/bash\n")
	sb.WriteString("service docker start\n")
	sb.WriteString(fmt.Sprintf("docker pull %s\n", tmpl.Image))
	sb.WriteString(fmt.Sprintf("docker run -d -p %d:%d %s\n", tmpl.HostPort, tmpl.ContainerPort, tmpl.Image))
	sb.WriteString(fmt.Sprintf("shutdown -h +%d\n", ttlMinutes))
	return sb.String()
}

// Launch resolves the template, renders the boot payload and requests exactly
// one VM. template.ErrUnknownTemplate propagates unwrapped; any compute error
// is wrapped as a provision failure. One billable resource per successful
// call; retries are the caller's business and create a new resource.
func (p *Provisioner) Launch(ctx context.Context, labType string, ttlMinutes int) (*Result, error) {
	tmpl, err := p.registry.Lookup(labType)
	if err != nil {
		return nil, err
	}

	resourceID, err := p.compute.CreateInstance(ctx, compute.LaunchSpec{
		LabType:     labType,
		BootPayload: RenderBootPayload(tmpl, ttlMinutes),
	})
	if err != nil {
		return nil, fmt.Errorf("provision %q: %w", labType, err)
	}

	return &Result{ResourceID: resourceID, Port: tmpl.HostPort}, nil
}
