package service

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/Shanayardptrial/Passport-Photo-maker/config"
	"github.com/Shanayardptrial/Passport-Photo-maker/utils"
	"go.uber.org/zap"
)

const (
	inputPlaceholder  = "{input}"
	outputPlaceholder = "{output}"
)

// CommandRemover runs an external background removal tool such as rembg.
type CommandRemover struct {
	path string
	args []string
}

func NewCommandRemover(cfg *config.CommandConfig) *CommandRemover {
	args := cfg.Args
	if len(args) == 0 {
		args = []string{inputPlaceholder, outputPlaceholder}
	}
	return &CommandRemover{path: cfg.Path, args: args}
}

// RemoveFile succeeds when the tool exits cleanly and leaves a non-empty
// output file behind. The process is killed when ctx ends.
func (r *CommandRemover) RemoveFile(ctx context.Context, inputPath, outputPath string) bool {
	replacer := strings.NewReplacer(inputPlaceholder, inputPath, outputPlaceholder, outputPath)
	args := make([]string, len(r.args))
	for i, a := range r.args {
		args[i] = replacer.Replace(a)
	}

	cmd := exec.CommandContext(ctx, r.path, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		utils.Logger.Warn("remover command failed",
			zap.String("command", r.path),
			zap.Strings("args", args),
			zap.ByteString("output", truncate(output, 512)),
			zap.Error(err))
		return false
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		utils.Logger.Warn("remover command produced no output",
			zap.String("command", r.path),
			zap.String("output_path", outputPath))
		return false
	}
	return true
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
