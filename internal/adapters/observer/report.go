package observer

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
)

// maxReportLine bounds one line of an access report.
const maxReportLine = 1 << 20

// reportLine is one JSON line of an access report, for example
// {"op":"read","path":"include/config.h"}. Relative paths are resolved against the
// node's working directory.
type reportLine struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	PID   int    `json:"pid,omitempty"`
	Error uint32 `json:"error,omitempty"`
	Dir   bool   `json:"dir,omitempty"`
}

func createReportFile(root, contextID string) (string, error) {
	dir := filepath.Join(root, domain.DefaultReportsPath())
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrObserverFailed.Error()), "dir", dir)
	}

	name := sanitize(contextID) + ".jsonl"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, nil, domain.FilePerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrObserverFailed.Error()), "path", path)
	}
	return path, nil
}

// relayReport turns every line of the report into a file-access event. Report events
// are marked augmented since they arrive out of band, after the process tree exited.
func (o *observation) relayReport() error {
	f, err := os.Open(o.reportPath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open access report"), "path", o.reportPath)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReportLine)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var line reportLine
		if err := json.Unmarshal([]byte(text), &line); err != nil || line.Path == "" {
			o.logger.Debug("skipping malformed access report line: " + text)
			continue
		}

		ev, ok := line.event(o.workDir)
		if !ok {
			o.logger.Debug("skipping access report line with unknown op: " + line.Op)
			continue
		}
		o.emit(ev)
	}

	if err := scanner.Err(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read access report"), "path", o.reportPath)
	}
	return nil
}

func (l reportLine) event(workDir string) (domain.FileAccessEvent, bool) {
	op := domain.ParseOperation(l.Op)
	if op == domain.OpUnknown {
		return domain.FileAccessEvent{}, false
	}

	path := filepath.FromSlash(l.Path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	return domain.FileAccessEvent{
		ProcessID:       l.PID,
		RequestedAccess: accessFor(op),
		Operation:       op,
		Path:            filepath.Clean(path),
		DesiredAccess:   desiredFor(op),
		Error:           l.Error,
		IsDirectory:     l.Dir || op == domain.OpCreateDirectory || op == domain.OpRemoveDirectory,
		IsAugmented:     true,
	}, true
}

func accessFor(op domain.Operation) domain.RequestedAccess {
	switch op {
	case domain.OpReadFile:
		return domain.AccessRead
	case domain.OpProbe:
		return domain.AccessProbe
	case domain.OpEnumerate:
		return domain.AccessEnumerate
	case domain.OpUnknown:
		return domain.AccessNone
	default:
		return domain.AccessWrite
	}
}

func desiredFor(op domain.Operation) domain.DesiredAccess {
	switch op {
	case domain.OpReadFile, domain.OpProbe, domain.OpEnumerate:
		return domain.DesiredGenericRead
	case domain.OpDeleteFile, domain.OpRemoveDirectory, domain.OpMoveSource:
		return domain.DesiredDelete
	default:
		return domain.DesiredGenericWrite
	}
}
