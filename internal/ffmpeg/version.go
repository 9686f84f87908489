package ffmpeg

import (
	"errors"
	"os/exec"
	"sync"
)

var verMu sync.Mutex
var verFF string
var verErr error

func Version() (string, error) {
	verMu.Lock()
	defer verMu.Unlock()

	if verFF != "" {
		return verFF, verErr
	}

	cmd := exec.Command(defaults["bin"], "-version")
	b, err := cmd.Output()
	if err != nil {
		verFF = "-"
		verErr = err
		return verFF, verErr
	}

	if verFF = parseVersion(b); verFF == "" {
		verFF = "?"
		verErr = errors.New("ffmpeg: unknown version output")
	}

	log.Debug().Str("version", verFF).Msgf("[ffmpeg] bin")

	return verFF, verErr
}

// parseVersion extracts "N.n..." from "ffmpeg version N.n... Copyright ..."
func parseVersion(b []byte) string {
	const prefix = "ffmpeg version "
	if len(b) < len(prefix) || string(b[:len(prefix)]) != prefix {
		return ""
	}
	b = b[len(prefix):]
	for i, c := range b {
		if c == ' ' || c == '\n' || c == '\r' {
			return string(b[:i])
		}
	}
	return string(b)
}
