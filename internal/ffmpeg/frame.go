package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"

	"github.com/floostack/transcoder/ffmpeg"
)

// ExtractFrame decodes a single frame from the video at 'source' and writes
// it to 'output' (the encoder is chosen from the output extension). A
// non-negative seekSeconds skips that far into the stream first; pass a
// negative value to take the first available frame instead.
func ExtractFrame(ctx context.Context, config Config, source string, output string, seekSeconds int) error {
	vframes := 1
	overwrite := true
	opts := &ffmpeg.Options{
		Vframes:   &vframes,
		Overwrite: &overwrite,
	}

	if seekSeconds >= 0 {
		seek := strconv.Itoa(seekSeconds)
		opts.SeekTime = &seek
	}

	trans := ffmpeg.
		New(&ffmpeg.Config{
			FfmpegBinPath:  config.ffmpegBin(),
			FfprobeBinPath: config.ffprobeBin(),
		}).
		Input(source).
		Output(output).
		WithContext(&ctx)

	progressChannel, err := trans.Start(opts)
	if err != nil {
		return parseFfmpegError(err)
	}

	// Drain until the underlying command closes the channel; the frame
	// has been written (or the context expired) by then.
	for range progressChannel {
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	return nil
}

// parseFfmpegError tries to pick out the relevant information from the HUGE
// output log that ffmpeg produces on failure. The error contains lots of
// information about how the binary was compiled... this is useless info, we
// just want the 'message' JSON that is encoded inside.
func parseFfmpegError(err error) error {
	messageMatcher := regexp.MustCompile(`(?s)message: ({.*})`)
	groups := messageMatcher.FindStringSubmatch(err.Error())
	if len(groups) == 0 {
		return err
	}

	var out map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(groups[1]), &out); jsonErr != nil {
		// We failed to extract the info.. just use the entire string as our error
		return errors.New(groups[1])
	}

	if exception, ok := out["error"].(map[string]interface{}); ok {
		if msg, ok := exception["string"].(string); ok {
			return errors.New(msg)
		}
	}

	return err
}
