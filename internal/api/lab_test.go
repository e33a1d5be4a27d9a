package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kamathanirudh/labstack/internal/compute"
	"github.com/kamathanirudh/labstack/internal/lab"
	"github.com/kamathanirudh/labstack/internal/provision"
	"github.com/kamathanirudh/labstack/internal/store"
	"github.com/kamathanirudh/labstack/internal/template"
	"github.com/kamathanirudh/labstack/pkg/types"
)

func newTestServer(t *testing.T) (*Server, *compute.Fake, *store.Memory) {
	t.Helper()
	reg, err := template.Load("")
	if err != nil {
		t.Fatalf("template.Load() error: %v", err)
	}
	fake := compute.NewFake()
	st := store.NewMemory()
	ctrl := lab.NewController(provision.New(reg, fake), st, fake)
	return NewServer(ctrl, reg, 30), fake, st
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestCreateLab(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/labs", `{"labType":"web","ttlMinutes":30}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp types.CreateLabResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.LabID == "" {
		t.Error("expected non-empty labId")
	}
}

func TestCreateLab_TTLResolution(t *testing.T) {
	s, fake, _ := newTestServer(t)

	// An explicit 0 means immediate shutdown at boot and must not be
	// replaced by the server default.
	rec := doJSON(s, http.MethodPost, "/labs", `{"labType":"web","ttlMinutes":0}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := fake.Created[0].BootPayload; !strings.HasSuffix(got, "shutdown -h +0\n") {
		t.Errorf("explicit ttl 0 not honored, boot payload ends: %q", got)
	}

	// An omitted TTL falls back to the server default.
	rec = doJSON(s, http.MethodPost, "/labs", `{"labType":"web"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := fake.Created[1].BootPayload; !strings.HasSuffix(got, "shutdown -h +30\n") {
		t.Errorf("omitted ttl did not use server default, boot payload ends: %q", got)
	}
}

func TestCreateLab_UnknownType(t *testing.T) {
	s, fake, _ := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/labs", `{"labType":"nonexistent"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(fake.Created) != 0 {
		t.Errorf("expected no instances created, got %d", len(fake.Created))
	}
}

func TestCreateLab_Validation(t *testing.T) {
	s, _, _ := newTestServer(t)

	if rec := doJSON(s, http.MethodPost, "/labs", `{"ttlMinutes":30}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing labType: expected 400, got %d", rec.Code)
	}
	if rec := doJSON(s, http.MethodPost, "/labs", `{"labType":"web","ttlMinutes":-5}`); rec.Code != http.StatusBadRequest {
		t.Errorf("negative TTL: expected 400, got %d", rec.Code)
	}
}

func TestCreateLab_ProvisionFailure(t *testing.T) {
	s, fake, _ := newTestServer(t)
	fake.CreateErr = context.DeadlineExceeded

	rec := doJSON(s, http.MethodPost, "/labs", `{"labType":"web"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestGetLabStatus_Lifecycle(t *testing.T) {
	s, fake, st := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/labs", `{"labType":"web","ttlMinutes":30}`)
	var created types.CreateLabResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(s, http.MethodGet, "/labs/"+created.LabID+"/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status types.LabStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != types.LabStatusPending || status.AccessURL != nil {
		t.Fatalf("expected {pending, null}, got {%s, %v}", status.Status, status.AccessURL)
	}

	labRec, _ := st.Get(context.Background(), created.LabID)
	fake.SetState(labRec.ResourceID, compute.InstanceState{
		PowerState:    compute.PowerStateRunning,
		PublicAddress: "1.2.3.4",
	})

	rec = doJSON(s, http.MethodGet, "/labs/"+created.LabID+"/status", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != types.LabStatusReady || status.AccessURL == nil || *status.AccessURL != "http://1.2.3.4:8080" {
		t.Fatalf("expected {ready, http://1.2.3.4:8080}, got {%s, %v}", status.Status, status.AccessURL)
	}
}

func TestGetLabStatus_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(s, http.MethodGet, "/labs/e0000000-0000-0000-0000-000000000000/status", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTerminateLab(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/labs", `{"labType":"web"}`)
	var created types.CreateLabResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(s, http.MethodPost, "/labs/"+created.LabID+"/terminate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var ack types.TerminateLabResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatal(err)
	}
	if !ack.Acknowledged {
		t.Error("expected acknowledged:true")
	}

	// Idempotent re-terminate
	rec = doJSON(s, http.MethodPost, "/labs/"+created.LabID+"/terminate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat terminate, got %d", rec.Code)
	}
}

func TestTerminateLab_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/labs/f0000000-0000-0000-0000-000000000000/terminate", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTerminateLab_CorruptRecord(t *testing.T) {
	s, _, st := newTestServer(t)

	_ = st.Put(context.Background(), &types.LabRecord{
		LabID:   "deadbeef-0000-0000-0000-000000000000",
		LabType: "web",
		Port:    8080,
		Status:  types.LabStatusPending,
	})

	rec := doJSON(s, http.MethodPost, "/labs/deadbeef-0000-0000-0000-000000000000/terminate", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for corrupt record, got %d", rec.Code)
	}
}

func TestListTemplates(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(s, http.MethodGet, "/templates", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var templates []types.LabTemplate
	if err := json.Unmarshal(rec.Body.Bytes(), &templates); err != nil {
		t.Fatal(err)
	}
	if len(templates) != 3 {
		t.Errorf("expected 3 templates, got %d", len(templates))
	}
}
