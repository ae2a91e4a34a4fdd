package media

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/yeti47/framegrab/server/core/ccc/logging"
)

const probeTimeout = 10 * time.Second

// Capabilities describes what the installed ffmpeg binary supports.
type Capabilities struct {
	Available bool
	Reconnect bool
}

// CapabilityProber inspects an ffmpeg binary once at startup.
type CapabilityProber struct {
	logger  logging.Logger
	program string
	// run executes the program and returns its combined output; replaced in tests
	run func(ctx context.Context, program string, args ...string) ([]byte, error)
}

// NewCapabilityProber creates a prober for the given ffmpeg program
func NewCapabilityProber(logger logging.Logger, program string) *CapabilityProber {
	if logger == nil {
		logger = logging.NopLogger
	}
	if program == "" {
		program = DefaultProgram
	}
	return &CapabilityProber{
		logger:  logger,
		program: program,
		run:     runCombined,
	}
}

// Probe queries the help text of ffmpeg's http protocol and looks for the
// reconnect options. Other protocols never accept them. A missing binary is
// not an error: the result simply reports Available=false and every
// extraction will fail with a spawn error later on.
func (p *CapabilityProber) Probe(ctx context.Context) Capabilities {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	output, err := p.run(ctx, p.program, "-hide_banner", "-h", "protocol=http")
	if err != nil && len(output) == 0 {
		p.logger.Warn("Failed to query ffmpeg capabilities", "program", p.program, "error", err)
		return Capabilities{}
	}

	caps := Capabilities{
		Available: true,
		Reconnect: hasOption(string(output), "-reconnect"),
	}
	p.logger.Info("Detected ffmpeg capabilities", "program", p.program, "reconnect", caps.Reconnect)
	return caps
}

// hasOption reports whether a line of help starts with option
func hasOption(help, option string) bool {
	for _, line := range strings.Split(help, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == option {
			return true
		}
	}
	return false
}

func runCombined(ctx context.Context, program string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, program, args...).CombinedOutput()
}
