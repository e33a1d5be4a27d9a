package types

import "time"

// LabStatus represents the lifecycle state of a lab.
// Status only moves forward: pending -> ready -> terminated.
type LabStatus string

const (
	LabStatusPending    LabStatus = "pending"
	LabStatusReady      LabStatus = "ready"
	LabStatusTerminated LabStatus = "terminated"
)

// LabRecord is the durable record for one provisioned lab.
// ResourceID and Port are written once at creation and never reassigned.
// AccessURL is set exactly once on the pending -> ready transition and is
// retained after termination (last-known reachability, not current availability).
type LabRecord struct {
	LabID      string    `json:"labId"`
	LabType    string    `json:"labType"`
	ResourceID string    `json:"resourceId"`
	Port       int       `json:"port"`
	Status     LabStatus `json:"status"`
	AccessURL  *string   `json:"accessUrl"`
	TTLMinutes int       `json:"ttlMinutes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CreateLabRequest is the request body for creating a lab.
// TTLMinutes is minutes from VM boot. Omitted means the server default;
// an explicit 0 is honored and shuts the VM down at boot.
type CreateLabRequest struct {
	LabType    string `json:"labType"`
	TTLMinutes *int   `json:"ttlMinutes,omitempty"`
}

// CreateLabResponse is the response for a successful lab creation.
type CreateLabResponse struct {
	LabID string `json:"labId"`
}

// LabStatusResponse is the response for a lab status query.
type LabStatusResponse struct {
	Status    LabStatus `json:"status"`
	AccessURL *string   `json:"accessUrl"`
}

// TerminateLabResponse acknowledges a termination request.
type TerminateLabResponse struct {
	Acknowledged bool `json:"acknowledged"`
}
