package main

import (
	"github.com/relaycast/relaycast/internal/api"
	"github.com/relaycast/relaycast/internal/app"
	"github.com/relaycast/relaycast/internal/broadcast"
	"github.com/relaycast/relaycast/internal/discovery"
	"github.com/relaycast/relaycast/internal/ffmpeg"
	"github.com/relaycast/relaycast/pkg/shell"
)

func main() {
	app.Init() // init config and logs

	api.Init()       // init HTTP API server
	ffmpeg.Init()    // probe external ffmpeg binary
	broadcast.Init() // audio broadcaster (depends on ffmpeg)
	discovery.Init() // ssdp responder (depends on broadcast)

	shell.RunUntilSignal()
}
