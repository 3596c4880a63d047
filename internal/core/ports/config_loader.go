package ports

import "go.trai.ch/memo/internal/core/domain"

// ConfigLoader defines the interface for loading the build configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds memo.yaml from cwd upward and returns the workspace it describes.
	Load(cwd string) (*domain.Workspace, error)
}
