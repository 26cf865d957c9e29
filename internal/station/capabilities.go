package station

import "fmt"

// Capabilities describes what a workstation can do. The scheduler routes
// work orders to workstations whose capabilities satisfy the order's
// requirements.
type Capabilities struct {
	// VCS / isolation
	FixtureType      string `yaml:"fixture_type" json:"fixture_type"`
	SupportsParallel bool   `yaml:"supports_parallel" json:"supports_parallel"`

	// Installed tooling
	Languages       []string          `yaml:"languages" json:"languages"`
	PackageManagers []string          `yaml:"package_managers" json:"package_managers"`
	Runtimes        map[string]string `yaml:"runtimes" json:"runtimes"`
	Tools           []string          `yaml:"tools" json:"tools"`

	// Resources
	GPU           bool    `yaml:"gpu" json:"gpu"`
	MemoryGB      float64 `yaml:"memory_gb" json:"memory_gb"`
	DiskGB        float64 `yaml:"disk_gb" json:"disk_gb"`
	NetworkAccess bool    `yaml:"network_access" json:"network_access"`

	// Producer
	ProducerModel   string   `yaml:"producer_model" json:"producer_model"`
	ToolPermissions []string `yaml:"tool_permissions" json:"tool_permissions"`

	// SOP attached at commission
	SOPName string `yaml:"sop_name" json:"sop_name"`
}

// DefaultCapabilities returns the baseline capability set for a
// workstation with no explicit configuration.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		FixtureType:     "local",
		MemoryGB:        8,
		DiskGB:          50,
		NetworkAccess:   true,
		ToolPermissions: []string{"Read", "Write", "Edit", "Bash", "Glob", "Grep"},
	}
}

// MatchMap flattens the capabilities into the scalar key space the
// routing matcher understands. List-valued capabilities become per-item
// boolean keys ("language:go", "tool:make") so requirements stay
// equality-comparable; numeric resources match via {"min": n} thresholds.
func (c Capabilities) MatchMap() map[string]any {
	m := map[string]any{
		"fixture_type":      c.FixtureType,
		"supports_parallel": c.SupportsParallel,
		"gpu":               c.GPU,
		"memory_gb":         c.MemoryGB,
		"disk_gb":           c.DiskGB,
		"network_access":    c.NetworkAccess,
	}
	if c.ProducerModel != "" {
		m["producer_model"] = c.ProducerModel
	}
	if c.SOPName != "" {
		m["sop"] = c.SOPName
	}
	for _, lang := range c.Languages {
		m["language:"+lang] = true
	}
	for _, pm := range c.PackageManagers {
		m["package_manager:"+pm] = true
	}
	for _, tool := range c.Tools {
		m["tool:"+tool] = true
	}
	for name, version := range c.Runtimes {
		m[fmt.Sprintf("runtime:%s", name)] = version
	}
	return m
}
