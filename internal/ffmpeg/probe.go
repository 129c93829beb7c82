package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Config holds the paths to the ffmpeg/ffprobe binaries. Empty values
// mean the binaries are resolved from PATH.
type Config struct {
	FfmpegBinPath  string `yaml:"ffmpeg_binary" env:"FFMPEG_BINARY"`
	FfprobeBinPath string `yaml:"ffprobe_binary" env:"FFPROBE_BINARY"`
}

func (config *Config) ffprobeBin() string {
	if config.FfprobeBinPath != "" {
		return config.FfprobeBinPath
	}
	return "ffprobe"
}

func (config *Config) ffmpegBin() string {
	if config.FfmpegBinPath != "" {
		return config.FfmpegBinPath
	}
	return "ffmpeg"
}

type (
	// ProbeOutput is the typed subset of ffprobe's JSON report that the
	// metadata extraction cares about. ffprobe encodes many numeric fields
	// as strings; they are kept as strings here and parsed defensively
	// by the consumer so a malformed field degrades to 'absent' rather
	// than failing the whole decode.
	ProbeOutput struct {
		Streams []ProbeStream `json:"streams"`
		Format  ProbeFormat   `json:"format"`
	}

	ProbeStream struct {
		Index      int    `json:"index"`
		CodecName  string `json:"codec_name"`
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		Duration   string `json:"duration"`
	}

	ProbeFormat struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	}
)

// FirstStreamOfType returns the first stream whose codec_type matches the
// one provided ("video" or "audio"), or nil if the report contains none.
func (output *ProbeOutput) FirstStreamOfType(codecType string) *ProbeStream {
	for i := range output.Streams {
		if output.Streams[i].CodecType == codecType {
			return &output.Streams[i]
		}
	}

	return nil
}

// ProbeFile runs ffprobe against the file at the given path and decodes
// it's JSON report. The invocation is bounded by the provided context;
// expiry kills the probe process and surfaces as a regular error.
func ProbeFile(ctx context.Context, config Config, path string) (*ProbeOutput, error) {
	cmd := exec.CommandContext(ctx, config.ffprobeBin(),
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffprobe aborted: %w", ctxErr)
		}
		return nil, fmt.Errorf("failed to extract file metadata information using ffprobe: %w", err)
	}

	var output ProbeOutput
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, fmt.Errorf("failed to decode ffprobe report: %w", err)
	}

	return &output, nil
}
