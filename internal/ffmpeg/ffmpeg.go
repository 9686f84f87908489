// Package ffmpeg adapts an external ffmpeg binary as the audio
// conversion backend: any input container to raw s16le mono 16 kHz PCM,
// with an optional volume boost.
package ffmpeg

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/relaycast/relaycast/internal/app"
	"github.com/relaycast/relaycast/pkg/relay"
	"github.com/relaycast/relaycast/pkg/shell"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod map[string]string `yaml:"ffmpeg"`
	}

	cfg.Mod = defaults // will be overriden from yaml

	app.LoadConfig(&cfg)

	log = app.GetLogger("ffmpeg")

	if ver, err := Version(); err != nil {
		log.Warn().Err(err).Msg("[ffmpeg] bin unavailable, conversion disabled")
	} else {
		app.Info["ffmpeg"] = ver
	}
}

var defaults = map[string]string{
	"bin":    "ffmpeg",
	"global": "-hide_banner -v error",

	// inputs
	"file": "-i pipe:0",
	// the Relay wire format, for sources that are already raw PCM
	"raw": "-f s16le -ar 16000 -ac 1 -i pipe:0",

	// output
	"resample": "-ar:a 16000 -ac:a 1",
	"output":   "-c:a pcm_s16le -f s16le pipe:1",
}

var log zerolog.Logger

// Converter returns the relay.Converter backed by the ffmpeg binary.
func Converter() relay.Converter {
	return converter{}
}

type converter struct{}

func (converter) Convert(src []byte, params relay.ConvertParams) ([]byte, error) {
	args := convertArgs(params)

	log.Debug().Msgf("[ffmpeg] %s %s", defaults["bin"], strings.Join(args, " "))

	cmd := exec.Command(defaults["bin"], args...)
	cmd.Stdin = bytes.NewReader(src)

	out, err := cmd.Output()
	if err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) && len(exit.Stderr) > 0 {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(exit.Stderr))
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("ffmpeg: decode produced no audio")
	}

	return out, nil
}

// convertArgs assembles the command line for one conversion:
// - Resample: decode any container, downmix and resample to the wire format
// - BoostDB only: input is already raw PCM, just apply the gain
func convertArgs(params relay.ConvertParams) []string {
	s := defaults["global"]

	if params.Resample {
		s += " " + defaults["file"]
	} else {
		s += " " + defaults["raw"]
	}

	if params.BoostDB != 0 {
		s += fmt.Sprintf(" -af volume=%gdB", params.BoostDB)
	}

	if params.Resample {
		s += " " + defaults["resample"]
	}

	s += " " + defaults["output"]

	return shell.QuoteSplit(s)
}
