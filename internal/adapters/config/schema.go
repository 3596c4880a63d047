package config

// Memofile represents the structure of the memo.yaml configuration file.
type Memofile struct {
	Version string              `yaml:"version"`
	Root    string              `yaml:"root"`
	Cache   CacheDTO            `yaml:"cache"`
	Nodes   map[string]*NodeDTO `yaml:"nodes"`
}

// CacheDTO represents the cache section. Unset fields take their defaults.
type CacheDTO struct {
	Dir             string   `yaml:"dir"`
	HashAlgorithm   string   `yaml:"hashAlgorithm"`
	Compression     string   `yaml:"compression"`
	Codec           string   `yaml:"codec"`
	MaxSelectors    *int     `yaml:"maxSelectors"`
	RequirePersist  bool     `yaml:"requirePersist"`
	SentinelTimeout string   `yaml:"sentinelTimeout"`
	Observers       []string `yaml:"observers"`
}

// NodeDTO represents a node definition in the configuration.
type NodeDTO struct {
	WorkingDir  string            `yaml:"workingDir"`
	Cmd         []string          `yaml:"cmd"`
	Inputs      []string          `yaml:"inputs"`
	Properties  []string          `yaml:"properties"`
	Targets     []string          `yaml:"targets"`
	DependsOn   []string          `yaml:"dependsOn"`
	Environment map[string]string `yaml:"environment"`
}
