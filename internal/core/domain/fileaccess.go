package domain

import "time"

// RequestedAccess is the kind of access a process asked the file system for.
type RequestedAccess uint8

const (
	// AccessNone is an access with no recognized intent.
	AccessNone RequestedAccess = 0
	// AccessRead is a content read.
	AccessRead RequestedAccess = 1 << iota
	// AccessWrite is a content write, create, delete or rename.
	AccessWrite
	// AccessProbe is an existence or attribute check.
	AccessProbe
	// AccessEnumerate is a directory listing.
	AccessEnumerate
	// AccessEnumerationProbe is a probe issued while listing a directory.
	AccessEnumerationProbe
)

// Has reports whether all bits of flag are set.
func (a RequestedAccess) Has(flag RequestedAccess) bool {
	return a&flag == flag
}

// IsProbeOrEnumerationOnly reports whether the access cannot affect content.
func (a RequestedAccess) IsProbeOrEnumerationOnly() bool {
	return a != AccessNone && a&(AccessRead|AccessWrite) == 0
}

// DesiredAccess mirrors the access mask a process opened a handle with.
type DesiredAccess uint32

const (
	// DesiredGenericRead requests read access.
	DesiredGenericRead DesiredAccess = 1 << iota
	// DesiredGenericWrite requests write access.
	DesiredGenericWrite
	// DesiredDelete requests delete access.
	DesiredDelete
)

// Operation is the file-system operation an event reports.
type Operation uint8

const (
	// OpUnknown is an unclassified operation.
	OpUnknown Operation = iota
	// OpCreateFile opens or creates a file handle.
	OpCreateFile
	// OpReadFile reads file content.
	OpReadFile
	// OpWriteFile writes file content.
	OpWriteFile
	// OpDeleteFile deletes a file.
	OpDeleteFile
	// OpMoveSource is the source side of a rename.
	OpMoveSource
	// OpMoveDestination is the destination side of a rename.
	OpMoveDestination
	// OpCreateDirectory creates a directory.
	OpCreateDirectory
	// OpRemoveDirectory removes a directory.
	OpRemoveDirectory
	// OpProbe checks existence or attributes.
	OpProbe
	// OpEnumerate lists a directory.
	OpEnumerate
)

var operationNames = map[Operation]string{
	OpUnknown:         "unknown",
	OpCreateFile:      "create",
	OpReadFile:        "read",
	OpWriteFile:       "write",
	OpDeleteFile:      "delete",
	OpMoveSource:      "move-source",
	OpMoveDestination: "move-destination",
	OpCreateDirectory: "mkdir",
	OpRemoveDirectory: "rmdir",
	OpProbe:           "probe",
	OpEnumerate:       "enumerate",
}

// String returns the short operation name.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOperation maps a short operation name back to an Operation.
func ParseOperation(name string) Operation {
	for op, n := range operationNames {
		if n == name {
			return op
		}
	}
	return OpUnknown
}

// Error codes carried by file-access events.
const (
	// ErrorSuccess means the operation succeeded.
	ErrorSuccess uint32 = 0
	// ErrorAlreadyExists means a create found an existing file, which still counts.
	ErrorAlreadyExists uint32 = 183
)

// SentinelPath is the synthetic path of the barrier event that marks the end of the
// file-access stream for one execution.
const SentinelPath = "\x00memo-sentinel"

// FileAccessEvent is one raw observation from the observer.
type FileAccessEvent struct {
	ProcessID       int
	RequestedAccess RequestedAccess
	Operation       Operation
	Path            string
	DesiredAccess   DesiredAccess
	Error           uint32
	// IsDirectory is set when the observer knows the path is a directory.
	IsDirectory bool
	// IsAugmented marks events synthesized for a process that escaped direct observation.
	IsAugmented bool
}

// IsSentinel reports whether the event is the end-of-stream barrier.
func (e FileAccessEvent) IsSentinel() bool {
	return e.Path == SentinelPath
}

// NewSentinelEvent creates the barrier event.
func NewSentinelEvent() FileAccessEvent {
	return FileAccessEvent{Path: SentinelPath}
}

// ProcessEvent reports the lifecycle of one observed process.
type ProcessEvent struct {
	ProcessID       int
	ParentProcessID int
	Executable      string
	ExitCode        int
	StartTime       time.Time
	EndTime         time.Time
}
