package domain

import "go.trai.ch/zerr"

var (
	// ErrNodeAlreadyExists is returned when a node ID is declared twice.
	ErrNodeAlreadyExists = zerr.New("node already exists")

	// ErrMissingDependency is returned when a node references an undeclared dependency.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when the node graph contains a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrNodeNotFound is returned when a requested node is not in the graph.
	ErrNodeNotFound = zerr.New("node not found")

	// ErrNoTargetsSpecified is returned when no nodes are requested.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrUnknownHashAlgorithm is returned for an unsupported hash algorithm name.
	ErrUnknownHashAlgorithm = zerr.New("unknown hash algorithm")

	// ErrHashAlgorithmMismatch is returned when a hash from another algorithm enters a session.
	ErrHashAlgorithmMismatch = zerr.New("hash algorithm does not match the session algorithm")

	// ErrInvalidContentHash is returned when a content hash string cannot be parsed.
	ErrInvalidContentHash = zerr.New("invalid content hash")

	// ErrUnknownCompression is returned for an unsupported blob compression name.
	ErrUnknownCompression = zerr.New("unknown compression")

	// ErrUnknownCodec is returned for an unsupported record codec name.
	ErrUnknownCodec = zerr.New("unknown codec")

	// ErrBlobNotFound is returned by blob stores when a hash or key is absent.
	ErrBlobNotFound = zerr.New("blob not found")

	// ErrBlobHashMismatch is returned when content put under a hash does not hash to it.
	ErrBlobHashMismatch = zerr.New("blob content does not match its hash")

	// ErrInvalidBlobKey is returned for keys that are empty or escape the key namespace.
	ErrInvalidBlobKey = zerr.New("invalid blob key")

	// ErrCacheIntegrity is returned when stored cache state is malformed or impossible.
	ErrCacheIntegrity = zerr.New("cache integrity fault")

	// ErrCacheStore is returned when a cache record cannot be persisted.
	ErrCacheStore = zerr.New("failed to store cache record")

	// ErrPlaceOutputsFailed is returned when cached outputs cannot be restored to disk.
	ErrPlaceOutputsFailed = zerr.New("failed to place cached outputs")

	// ErrClassifierInvariant marks a broken file-access classifier invariant. It is raised
	// with panic because continuing would write wrong cache entries.
	ErrClassifierInvariant = zerr.New("file access classifier invariant violated")

	// ErrSentinelTimeout is returned when the file-access barrier does not arrive in time.
	ErrSentinelTimeout = zerr.New("timed out waiting for file access stream to flush")

	// ErrBuildNotStarted is returned when a build operation runs before BeginBuild.
	ErrBuildNotStarted = zerr.New("build session not started")

	// ErrBuildAlreadyStarted is returned when BeginBuild runs twice without EndBuild.
	ErrBuildAlreadyStarted = zerr.New("build session already started")

	// ErrConfigReadFailed is returned when memo.yaml cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when memo.yaml cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigNotFound is returned when no memo.yaml is found.
	ErrConfigNotFound = zerr.New("could not find memo.yaml")

	// ErrInvalidConfig is returned when memo.yaml holds invalid values.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrSourceControlFailed is returned when the source-control file listing fails.
	ErrSourceControlFailed = zerr.New("failed to list source-controlled files")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrBuildExecutionFailed is returned when the build fails.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrNodeExecutionFailed is returned when a node's command fails.
	ErrNodeExecutionFailed = zerr.New("node execution failed")

	// ErrObserverFailed is returned when a file-access observer cannot start.
	ErrObserverFailed = zerr.New("failed to start file access observer")
)
