package domain

import "path/filepath"

const (
	// MemoDirName is the name of the internal workspace directory.
	MemoDirName = ".memo"

	// CacheDirName is the name of the local blob store directory.
	CacheDirName = "cache"

	// ReportsDirName holds per-execution access report files.
	ReportsDirName = "reports"

	// ConfigFileName is the name of the build file.
	ConfigFileName = "memo.yaml"

	// AccessReportEnv names the file a node may append access reports to.
	AccessReportEnv = "MEMO_ACCESS_REPORT"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// DefaultMaxSelectors caps the selector bucket of one weak fingerprint.
	DefaultMaxSelectors = 100
)

// DefaultCachePath returns the default local blob store path.
// It joins .memo and cache.
func DefaultCachePath() string {
	return filepath.Join(MemoDirName, CacheDirName)
}

// DefaultReportsPath returns the directory for access report files.
func DefaultReportsPath() string {
	return filepath.Join(MemoDirName, ReportsDirName)
}
