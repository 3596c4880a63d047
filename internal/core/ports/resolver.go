package ports

// InputResolver defines the interface for resolving input files.
//
//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type InputResolver interface {
	// ResolveInputs expands the given patterns to repository-relative, slash-separated
	// file paths under root. Patterns that match nothing are skipped.
	ResolveInputs(inputs []string, root string) ([]string, error)
}
