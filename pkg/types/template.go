package types

// LabTemplate is a named configuration describing what container image and
// ports a lab type runs. Templates are immutable after load.
type LabTemplate struct {
	Name          string `json:"name"`
	Image         string `json:"image"`
	HostPort      int    `json:"hostPort"`
	ContainerPort int    `json:"containerPort"`
}
