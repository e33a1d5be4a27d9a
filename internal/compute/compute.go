package compute

import "context"

// PowerState is the reported power state of a VM instance.
type PowerState string

const (
	PowerStatePending      PowerState = "pending"
	PowerStateRunning      PowerState = "running"
	PowerStateShuttingDown PowerState = "shutting-down"
	PowerStateStopped      PowerState = "stopped"
	PowerStateTerminated   PowerState = "terminated"
)

// LaunchSpec describes the single VM instance to create for a lab.
type LaunchSpec struct {
	LabType     string // propagated as an instance tag
	BootPayload string // user-data script, armed at boot
}

// InstanceState is a point-in-time view of a VM's power and network state.
// PublicAddress is empty until the provider assigns one.
type InstanceState struct {
	PowerState    PowerState
	PublicAddress string
}

// API is the subset of the cloud compute surface the lab lifecycle needs.
type API interface {
	CreateInstance(ctx context.Context, spec LaunchSpec) (string, error)
	DescribeInstance(ctx context.Context, resourceID string) (*InstanceState, error)
	TerminateInstance(ctx context.Context, resourceID string) error
}
