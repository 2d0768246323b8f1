package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// 跟随符号链接比较目录，macOS 的 TempDir 返回 /var -> /private/var 链接。
func mustRealPath(t *testing.T, path string) string {
	t.Helper()
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("resolve symlink for %s failed: %v", path, err)
	}
	return real
}

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}

	expectedDir := filepath.Join(mustRealPath(t, tmpDir), defaultLogDirName)
	if gotDir := mustRealPath(t, filepath.Dir(got)); gotDir != expectedDir {
		t.Fatalf("unexpected log dir: got=%s expected=%s", gotDir, expectedDir)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
}

func TestNewReleaseWritesToConfiguredFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{
		Dir:      tmpDir,
		Filename: "commission-release.log",
	})
	log.Info("commission calculated", zap.Uint("commission_id", 42))
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "commission-release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	for _, want := range []string{"commission calculated", "commission_id"} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected log content to contain %q, got=%s", want, string(content))
		}
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{
		Dir:      tmpDir,
		Filename: "commission-debug.log",
	})
	log.Info("debug mode logs to stdout only")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "commission-debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}
