package compute

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory compute API for tests. Instances start in the pending
// power state with no public address; tests advance them via SetState.
type Fake struct {
	mu        sync.Mutex
	seq       int
	instances map[string]InstanceState

	CreateErr    error
	DescribeErr  error
	TerminateErr error

	Created    []LaunchSpec
	Terminated []string
}

// NewFake creates an empty fake compute API.
func NewFake() *Fake {
	return &Fake{instances: make(map[string]InstanceState)}
}

func (f *Fake) CreateInstance(_ context.Context, spec LaunchSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.seq++
	id := fmt.Sprintf("i-fake%04d", f.seq)
	f.instances[id] = InstanceState{PowerState: PowerStatePending}
	f.Created = append(f.Created, spec)
	return id, nil
}

func (f *Fake) DescribeInstance(_ context.Context, resourceID string) (*InstanceState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DescribeErr != nil {
		return nil, f.DescribeErr
	}
	state, ok := f.instances[resourceID]
	if !ok {
		return nil, fmt.Errorf("fake: instance %s not found", resourceID)
	}
	return &state, nil
}

func (f *Fake) TerminateInstance(_ context.Context, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.TerminateErr != nil {
		return f.TerminateErr
	}
	f.instances[resourceID] = InstanceState{PowerState: PowerStateTerminated}
	f.Terminated = append(f.Terminated, resourceID)
	return nil
}

// SetState overrides the reported state of an instance.
func (f *Fake) SetState(resourceID string, state InstanceState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances[resourceID] = state
}

// InstanceCount returns how many instances have been created.
func (f *Fake) InstanceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.instances)
}
