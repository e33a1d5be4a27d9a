package provision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kamathanirudh/labstack/internal/compute"
	"github.com/kamathanirudh/labstack/internal/template"
	"github.com/kamathanirudh/labstack/pkg/types"
)

func testRegistry(t *testing.T) *template.Registry {
	t.Helper()
	r, err := template.Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return r
}

func TestRenderBootPayload(t *testing.T) {
	tmpl := types.LabTemplate{Name: "web", Image: "nginx", HostPort: 8080, ContainerPort: 80}

	got := RenderBootPayload(tmpl, 30)
	want := "#!/bin/bash\n" +
		"service docker start\n" +
		"docker pull nginx\n" +
		"docker run -d -p 8080:80 nginx\n" +
		"shutdown -h +30\n"
	if got != want {
		t.Errorf("boot payload mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestLaunch_CreatesOneInstance(t *testing.T) {
	fake := compute.NewFake()
	p := New(testRegistry(t), fake)

	res, err := p.Launch(context.Background(), "web", 30)
	if err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	if res.ResourceID == "" {
		t.Error("expected non-empty resource ID")
	}
	if res.Port != 8080 {
		t.Errorf("expected port 8080 from template, got %d", res.Port)
	}
	if len(fake.Created) != 1 {
		t.Fatalf("expected exactly 1 instance created, got %d", len(fake.Created))
	}
	if fake.Created[0].LabType != "web" {
		t.Errorf("expected lab type tag web, got %s", fake.Created[0].LabType)
	}
	if !strings.Contains(fake.Created[0].BootPayload, "shutdown -h +30") {
		t.Errorf("boot payload missing TTL shutdown: %s", fake.Created[0].BootPayload)
	}
}

func TestLaunch_UnknownLabType(t *testing.T) {
	fake := compute.NewFake()
	p := New(testRegistry(t), fake)

	_, err := p.Launch(context.Background(), "nonexistent", 30)
	if !errors.Is(err, template.ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
	if len(fake.Created) != 0 {
		t.Errorf("expected no instances created, got %d", len(fake.Created))
	}
}

func TestLaunch_ComputeFailure(t *testing.T) {
	fake := compute.NewFake()
	fake.CreateErr = errors.New("quota exceeded")
	p := New(testRegistry(t), fake)

	_, err := p.Launch(context.Background(), "web", 30)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, template.ErrUnknownTemplate) {
		t.Error("compute failure must not look like a bad lab type")
	}
}
