package media

import (
	"math"
	"strconv"
)

// Operation is the kind of artifact an extraction produces.
type Operation int

const (
	OperationSnapshot Operation = iota
	OperationClip
)

func (o Operation) String() string {
	if o == OperationClip {
		return "clip"
	}
	return "snapshot"
}

const (
	DefaultProgram   = "ffmpeg"
	DefaultUserAgent = "Mozilla/5.0 (compatible; VideoServer/1.0)"

	// socket I/O timeout handed to ffmpeg, in microseconds
	ioTimeoutMicros = "10000000"
)

// CommandSpec is a fully resolved ffmpeg invocation. A spec is built fresh
// for every request and must not be modified afterwards.
type CommandSpec struct {
	Program    string
	Args       []string
	OutputPath string
	// Fallback is tried once when the primary command exits unsuccessfully
	Fallback *CommandSpec
}

// ArgsCopy returns a copy of the argument vector that callers may modify
func (c CommandSpec) ArgsCopy() []string {
	out := make([]string, len(c.Args))
	copy(out, c.Args)
	return out
}

// StrategyOptions tunes the arguments emitted by a StrategyBuilder.
type StrategyOptions struct {
	Program   string
	UserAgent string
	// Reconnect enables the ffmpeg reconnect flags for progressive HTTP inputs.
	// Only set it when the installed ffmpeg's http protocol advertises them.
	Reconnect bool
}

// DefaultStrategyOptions returns the options used when nothing is configured
func DefaultStrategyOptions() StrategyOptions {
	return StrategyOptions{
		Program:   DefaultProgram,
		UserAgent: DefaultUserAgent,
		Reconnect: false,
	}
}

// StrategyBuilder turns a classified source into a CommandSpec. It holds
// no mutable state and is safe for concurrent use.
type StrategyBuilder struct {
	opts StrategyOptions
}

// NewStrategyBuilder creates a builder, filling unset options with defaults
func NewStrategyBuilder(opts StrategyOptions) *StrategyBuilder {
	if opts.Program == "" {
		opts.Program = DefaultProgram
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &StrategyBuilder{opts: opts}
}

// BuildSnapshot builds the command that grabs one frame at timestamp seconds
// into url and writes it as an image to outputPath.
func (b *StrategyBuilder) BuildSnapshot(url string, timestamp float64, outputPath string) CommandSpec {
	if IsCameraOverride(url) {
		// the camera firmware rejects input seeking, so the timestamp is not used
		return b.spec(outputPath,
			"-rtsp_transport", "tcp",
			"-i", url,
			"-vframes", "1",
			"-f", "image2",
			"-y", outputPath,
		)
	}

	args := b.inputArgs(Classify(url))
	args = append(args,
		"-i", url,
		"-ss", formatSeconds(timestamp),
		"-vframes", "1",
		"-q:v", "2",
		"-f", "image2",
		"-y", outputPath,
	)
	return b.spec(outputPath, args...)
}

// BuildClip builds the command that cuts duration seconds from url starting
// at start and writes the clip to outputPath.
func (b *StrategyBuilder) BuildClip(url string, start, duration float64, outputPath string) CommandSpec {
	if IsCameraOverride(url) {
		return b.spec(outputPath,
			"-rtsp_transport", "tcp",
			"-ss", formatSeconds(start),
			"-i", url,
			"-t", formatSeconds(duration),
			"-c:v", "copy",
			"-c:a", "aac",
			"-b:a", "128k",
			"-avoid_negative_ts", "make_zero",
			"-fflags", "+genpts",
			"-y", outputPath,
		)
	}

	protocol := Classify(url)
	spec := b.clipSpec(protocol, url, start, duration, outputPath, clipCodecArgs(protocol))
	if protocol == ProtocolFile {
		fallback := b.clipSpec(protocol, url, start, duration, outputPath, reencodeCodecArgs())
		spec.Fallback = &fallback
	}
	return spec
}

// Build dispatches to BuildSnapshot or BuildClip. For snapshots start is the
// timestamp and duration is ignored.
func (b *StrategyBuilder) Build(op Operation, url string, start, duration float64, outputPath string) CommandSpec {
	if op == OperationClip {
		return b.BuildClip(url, start, duration, outputPath)
	}
	return b.BuildSnapshot(url, start, outputPath)
}

func (b *StrategyBuilder) clipSpec(protocol Protocol, url string, start, duration float64, outputPath string, codec []string) CommandSpec {
	args := b.inputArgs(protocol)
	args = append(args,
		"-ss", formatSeconds(start),
		"-i", url,
		"-t", formatSeconds(duration),
	)
	args = append(args, codec...)
	args = append(args, "-y", outputPath)
	return b.spec(outputPath, args...)
}

func (b *StrategyBuilder) spec(outputPath string, args ...string) CommandSpec {
	return CommandSpec{
		Program:    b.opts.Program,
		Args:       args,
		OutputPath: outputPath,
	}
}

// inputArgs returns the demuxer options placed before -i for a protocol
func (b *StrategyBuilder) inputArgs(protocol Protocol) []string {
	switch protocol {
	case ProtocolRTSP:
		return []string{
			"-rtsp_transport", "tcp",
			"-timeout", ioTimeoutMicros,
			"-analyzeduration", "5000000",
			"-probesize", "5000000",
			"-max_delay", "500000",
		}
	case ProtocolRTMP:
		// rtmp reads -timeout as a listen timeout, -rw_timeout bounds a pull
		return []string{
			"-rw_timeout", ioTimeoutMicros,
			"-analyzeduration", "2000000",
			"-probesize", "2000000",
		}
	case ProtocolHLS:
		return []string{
			"-user_agent", b.opts.UserAgent,
			"-timeout", ioTimeoutMicros,
			"-analyzeduration", "3000000",
			"-probesize", "3000000",
		}
	case ProtocolHTTP:
		args := []string{"-user_agent", b.opts.UserAgent}
		if b.opts.Reconnect {
			// reconnect options belong to the http protocol only
			args = append(args, "-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5")
		}
		return append(args, "-timeout", ioTimeoutMicros)
	case ProtocolFile:
		return []string{}
	default:
		return []string{
			"-timeout", ioTimeoutMicros,
			"-analyzeduration", "3000000",
			"-probesize", "3000000",
		}
	}
}

// clipCodecArgs returns the stream copy or re-encode options for a clip
func clipCodecArgs(protocol Protocol) []string {
	switch protocol {
	case ProtocolRTSP, ProtocolRTMP:
		return []string{"-c:v", "copy", "-c:a", "aac", "-b:a", "128k"}
	case ProtocolHLS:
		return []string{"-c:v", "libx264", "-preset", "fast", "-crf", "23", "-c:a", "aac", "-b:a", "128k"}
	case ProtocolHTTP:
		return []string{"-c:v", "copy"}
	case ProtocolFile:
		return []string{"-c", "copy"}
	default:
		return []string{"-c:v", "libx264", "-preset", "fast", "-c:a", "aac", "-b:a", "128k"}
	}
}

// reencodeCodecArgs is used when a stream copy of a local file fails
func reencodeCodecArgs() []string {
	return []string{"-c:v", "libx264", "-preset", "fast", "-crf", "23", "-c:a", "aac", "-b:a", "128k"}
}

// formatSeconds renders a second count in the shortest form that parses back exactly
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ValidateSnapshotParams rejects timestamps ffmpeg cannot seek to
func ValidateSnapshotParams(url string, timestamp float64) error {
	if url == "" {
		return NewValidationError("url is required")
	}
	if !isFinite(timestamp) || timestamp < 0 {
		return NewValidationError("timestamp must be a non-negative number")
	}
	return nil
}

// ValidateClipParams checks the clip window before any process is started
func ValidateClipParams(url string, start, duration float64) error {
	if url == "" {
		return NewValidationError("url is required")
	}
	if !isFinite(start) || start < 0 {
		return NewValidationError("start must be a non-negative number")
	}
	if !isFinite(duration) || duration <= 0 {
		return NewValidationError("duration must be greater than 0")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
