// Package config provides the memo.yaml configuration loader.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// supportedVersion is the memo.yaml schema version this loader understands.
const supportedVersion = "1"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds the nearest memo.yaml at or above cwd and returns the workspace it
// describes. The node graph is validated before it is returned.
func (l *Loader) Load(cwd string) (*domain.Workspace, error) {
	configPath, err := findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	var memofile Memofile
	if err := readAndUnmarshalYAML(configPath, &memofile); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	if memofile.Version != "" && memofile.Version != supportedVersion {
		l.Logger.Warn("unknown memo.yaml version " + memofile.Version + ", reading it as version " + supportedVersion)
	}

	root := resolveRoot(configPath, memofile.Root)

	settings, err := buildCacheSettings(memofile.Cache)
	if err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	g, err := buildGraph(root, memofile.Nodes)
	if err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	return &domain.Workspace{Root: root, Graph: g, Cache: settings}, nil
}

func findConfiguration(cwd string) (string, error) {
	for dir := cwd; ; {
		candidate := filepath.Join(dir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
		}
		dir = parent
	}
}

func buildCacheSettings(dto CacheDTO) (domain.CacheSettings, error) {
	settings := domain.DefaultCacheSettings()

	if dto.Dir != "" {
		settings.Dir = filepath.Clean(dto.Dir)
	}

	alg, err := domain.ParseHashAlgorithm(dto.HashAlgorithm)
	if err != nil {
		return settings, invalid("cache.hashAlgorithm", dto.HashAlgorithm)
	}
	settings.HashAlgorithm = alg

	switch domain.Compression(dto.Compression) {
	case "":
	case domain.CompressionNone, domain.CompressionZstd, domain.CompressionLZ4:
		settings.Compression = domain.Compression(dto.Compression)
	default:
		return settings, invalid("cache.compression", dto.Compression)
	}

	switch dto.Codec {
	case "":
	case "json", "cbor":
		settings.Codec = dto.Codec
	default:
		return settings, invalid("cache.codec", dto.Codec)
	}

	if dto.MaxSelectors != nil {
		if *dto.MaxSelectors <= 0 {
			return settings, invalid("cache.maxSelectors", *dto.MaxSelectors)
		}
		settings.MaxSelectors = *dto.MaxSelectors
	}

	settings.RequirePersist = dto.RequirePersist

	if dto.SentinelTimeout != "" {
		timeout, err := time.ParseDuration(dto.SentinelTimeout)
		if err != nil || timeout <= 0 {
			return settings, invalid("cache.sentinelTimeout", dto.SentinelTimeout)
		}
		settings.SentinelTimeout = timeout
	}

	if dto.Observers != nil {
		for _, o := range dto.Observers {
			if o != domain.ObserverReport && o != domain.ObserverFSNotify {
				return settings, invalid("cache.observers", o)
			}
		}
		settings.Observers = slices.Compact(slices.Sorted(slices.Values(dto.Observers)))
	}

	return settings, nil
}

func invalid(field string, value any) error {
	return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, field), "value", value)
}

func buildGraph(root string, nodes map[string]*NodeDTO) (*domain.Graph, error) {
	g := domain.NewGraph(root)

	ids := make(map[string]bool, len(nodes))
	for name := range nodes {
		ids[domain.NormalizeNodeID(name)] = true
	}

	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		dto := nodes[name]
		if dto == nil {
			dto = &NodeDTO{}
		}

		id := domain.NormalizeNodeID(name)
		if err := validateNodeName(id); err != nil {
			return nil, err
		}

		deps := make([]string, len(dto.DependsOn))
		for i, dep := range dto.DependsOn {
			deps[i] = domain.NormalizeNodeID(dep)
			if !ids[deps[i]] {
				err := zerr.With(zerr.Wrap(domain.ErrMissingDependency, "node "+id), "missing_dependency", dep)
				return nil, err
			}
		}

		if err := g.AddNode(buildNode(id, dto, deps)); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func buildNode(id string, dto *NodeDTO, deps []string) *domain.Node {
	properties := make([]domain.Property, 0, len(dto.Properties))
	for _, p := range dto.Properties {
		properties = append(properties, domain.ParseProperty(p))
	}

	workingDir := filepath.ToSlash(filepath.Clean(dto.WorkingDir))
	if dto.WorkingDir == "" {
		workingDir = "."
	}

	return &domain.Node{
		ID:           domain.NewInternedString(id),
		Properties:   properties,
		Dependencies: domain.NewInternedStrings(deps),
		Inputs:       canonicalizeStrings(dto.Inputs),
		Command:      dto.Cmd,
		WorkingDir:   domain.NewInternedString(workingDir),
		Targets:      slices.Compact(slices.Sorted(slices.Values(dto.Targets))),
		Environment:  dto.Environment,
	}
}

// validateNodeName rejects the reserved "all" and empty names.
func validateNodeName(id string) error {
	if id == "" || id == "." {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "empty node name"), "node", id)
	}
	if strings.EqualFold(id, "all") {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "node name 'all' is reserved"), "node", id)
	}
	return nil
}

func canonicalizeStrings(strs []string) []domain.InternedString {
	if len(strs) == 0 {
		return nil
	}

	sorted := make([]string, len(strs))
	for i, s := range strs {
		sorted[i] = filepath.ToSlash(s)
	}
	slices.Sort(sorted)

	return domain.NewInternedStrings(slices.Compact(sorted))
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by walking up from the working directory
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
