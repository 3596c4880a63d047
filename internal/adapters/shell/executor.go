// Package shell provides the process executor adapter.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

// Execute runs the node's command in its working directory below root.
// The environment is merged with the following priority (low to high):
// 1. allow-listed system variables
// 2. env (observer variables)
// 3. node.Environment (user-defined overrides)
func (e *Executor) Execute(
	ctx context.Context,
	node *domain.Node,
	root string,
	env []string,
) (domain.ProcessEvent, error) {
	if len(node.Command) == 0 {
		now := time.Now()
		return domain.ProcessEvent{StartTime: now, EndTime: now}, nil
	}

	name := node.Command[0]
	args := node.Command[1:]

	cmdEnv := resolveEnvironment(os.Environ(), env, node.Environment)

	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec // user provided command
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Dir = workingDir(root, node.WorkingDir.String())
	cmd.Env = cmdEnv

	stdout := &logWriter{logger: e.logger, level: "info"}
	stderr := &logWriter{logger: e.logger, level: "warn"}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	ev := domain.ProcessEvent{
		ParentProcessID: os.Getpid(),
		Executable:      executable,
		StartTime:       time.Now(),
	}

	err := cmd.Start()
	if err == nil {
		ev.ProcessID = cmd.Process.Pid
		err = cmd.Wait()
	}
	ev.EndTime = time.Now()
	_ = stdout.Close()
	_ = stderr.Close()

	if err != nil {
		ev.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ev.ExitCode = exitErr.ExitCode()
		}
		err = zerr.With(zerr.Wrap(err, domain.ErrNodeExecutionFailed.Error()), "exit_code", ev.ExitCode)
		return ev, zerr.With(err, "node", node.ID.String())
	}

	return ev, nil
}

func workingDir(root, dir string) string {
	if dir == "" {
		return root
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, filepath.FromSlash(dir))
}

// logWriter forwards complete lines to the logger.
type logWriter struct {
	mu     sync.Mutex
	logger ports.Logger
	level  string
	buf    []byte
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

// Close logs any trailing partial line.
func (w *logWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	msg := strings.TrimSuffix(string(line), "\r")
	if w.level == "info" {
		w.logger.Info(msg)
	} else {
		w.logger.Warn(msg)
	}
}

// allowListedEnvVars are the system environment variables a node inherits. Everything
// else must be declared in the node's environment so builds stay reproducible.
var allowListedEnvVars = map[string]struct{}{
	"HOME": {},
	"TERM": {},
	"USER": {},
	"PATH": {},
}

// resolveEnvironment merges environment variables with the defined priority.
func resolveEnvironment(sysEnv, extraEnv []string, nodeEnv map[string]string) []string {
	envMap := filterSystemEnv(sysEnv)

	for _, entry := range extraEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}

	for k, v := range nodeEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			if _, allowed := allowListedEnvVars[k]; allowed {
				envMap[k] = v
			}
		}
	}
	return envMap
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
