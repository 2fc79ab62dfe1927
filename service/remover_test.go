package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
	"github.com/Shanayardptrial/Passport-Photo-maker/model"
)

// fakeTool copies its input to its output, optionally writing nothing or
// failing outright.
type fakeTool struct {
	fail      bool
	noOutput  bool
	gotInput  []byte
	inputPath string
}

func (f *fakeTool) RemoveFile(_ context.Context, inputPath, outputPath string) bool {
	f.inputPath = inputPath
	f.gotInput, _ = os.ReadFile(inputPath)
	if f.fail {
		return false
	}
	if f.noOutput {
		return true
	}
	return os.WriteFile(outputPath, append([]byte("cut:"), f.gotInput...), 0o600) == nil
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected %s to be empty, found %d entries", dir, len(entries))
	}
}

func TestDirScratchStoreLifecycle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch")
	store := NewDirScratchStore(root, true)

	first, err := store.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	second, err := store.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if first.Dir() == second.Dir() {
		t.Fatal("scratch areas must not be shared")
	}

	if got := first.Path("../../escape.png"); filepath.Dir(got) != first.Dir() {
		t.Errorf("path %q escapes scratch dir %q", got, first.Dir())
	}

	if err := os.WriteFile(first.Path("input.jpg"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	first.Release()
	first.Release()
	second.Release()

	assertEmptyDir(t, root)
}

func TestDirScratchStoreKeepsFilesWithoutCleanup(t *testing.T) {
	root := t.TempDir()
	store := NewDirScratchStore(root, false)

	scratch, err := store.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	scratch.Release()

	if _, err := os.Stat(scratch.Dir()); err != nil {
		t.Fatalf("scratch dir removed despite cleanup disabled: %v", err)
	}
}

func TestDirScratchStoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewDirScratchStore(t.TempDir(), true).Acquire(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestScratchRemover(t *testing.T) {
	tests := []struct {
		name    string
		tool    *fakeTool
		wantErr bool
	}{
		{"success", &fakeTool{}, false},
		{"tool failure", &fakeTool{fail: true}, true},
		{"missing output", &fakeTool{noOutput: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			r := NewScratchRemover(NewDirScratchStore(root, true), tt.tool)

			out, err := r.Remove(context.Background(), upload())

			if !bytes.Equal(tt.tool.gotInput, uploadBytes) {
				t.Errorf("tool saw %q, want the upload", tt.tool.gotInput)
			}
			if filepath.Ext(tt.tool.inputPath) != ".jpg" {
				t.Errorf("input staged as %q", tt.tool.inputPath)
			}

			if tt.wantErr {
				if !errors.Is(err, ErrRemovalFailed) {
					t.Fatalf("expected ErrRemovalFailed, got %v", err)
				}
			} else {
				if err != nil {
					t.Fatalf("remove failed: %v", err)
				}
				if string(out) != "cut:"+string(uploadBytes) {
					t.Errorf("unexpected cutout %q", out)
				}
			}

			assertEmptyDir(t, root)
		})
	}
}

func TestInputExt(t *testing.T) {
	tests := []struct {
		img  model.RawImage
		want string
	}{
		{model.RawImage{Filename: "Photo.JPEG"}, ".jpeg"},
		{model.RawImage{Filename: "noext", MIMEType: "image/webp"}, ".webp"},
		{model.RawImage{MIMEType: "image/jpg"}, ".jpg"},
		{model.RawImage{MIMEType: "image/png"}, ".png"},
		{model.RawImage{Filename: "weird.superlong"}, ".png"},
	}

	for _, tt := range tests {
		if got := inputExt(tt.img); got != tt.want {
			t.Errorf("inputExt(%+v) = %q, want %q", tt.img, got, tt.want)
		}
	}
}

func TestDisabledRemover(t *testing.T) {
	if _, err := (DisabledRemover{}).Remove(context.Background(), upload()); !errors.Is(err, ErrRemovalFailed) {
		t.Fatalf("expected ErrRemovalFailed, got %v", err)
	}
}

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func TestCommandRemoverCopiesOutput(t *testing.T) {
	requireTool(t, "cp")

	dir := t.TempDir()
	in, out := filepath.Join(dir, "in.png"), filepath.Join(dir, "out.png")
	if err := os.WriteFile(in, []byte("pixels"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	r := NewCommandRemover(&config.CommandConfig{Path: "cp"})
	if !r.RemoveFile(context.Background(), in, out) {
		t.Fatal("expected success")
	}
	if data, _ := os.ReadFile(out); string(data) != "pixels" {
		t.Errorf("unexpected output %q", data)
	}
}

func TestCommandRemoverFailures(t *testing.T) {
	requireTool(t, "true")
	requireTool(t, "false")
	requireTool(t, "sleep")

	tests := []struct {
		name    string
		cfg     config.CommandConfig
		timeout time.Duration
	}{
		{"non-zero exit", config.CommandConfig{Path: "false"}, time.Second},
		{"no output written", config.CommandConfig{Path: "true"}, time.Second},
		{"missing binary", config.CommandConfig{Path: "definitely-not-rembg"}, time.Second},
		{"killed on deadline", config.CommandConfig{Path: "sleep", Args: []string{"5"}}, 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()

			start := time.Now()
			ok := NewCommandRemover(&tt.cfg).RemoveFile(ctx, filepath.Join(dir, "in.png"), filepath.Join(dir, "out.png"))
			if ok {
				t.Fatal("expected failure")
			}
			if elapsed := time.Since(start); elapsed > 2*time.Second {
				t.Errorf("remover took %v", elapsed)
			}
		})
	}
}
