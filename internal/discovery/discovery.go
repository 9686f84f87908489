package discovery

import (
	"net/http"
	"sync"

	"github.com/relaycast/relaycast/internal/api"
	"github.com/relaycast/relaycast/internal/app"
	"github.com/relaycast/relaycast/internal/broadcast"
	"github.com/relaycast/relaycast/pkg/ssdp"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Active        bool   `yaml:"active"`
			AdvertisePort int    `yaml:"advertise_port"`
			OneShot       bool   `yaml:"oneshot"`
			DeviceType    string `yaml:"device_type"`
		} `yaml:"discovery"`
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("discovery")

	advertisePort = cfg.Mod.AdvertisePort
	oneshot = cfg.Mod.OneShot
	deviceType = cfg.Mod.DeviceType

	api.HandleFunc("api/discovery", apiDiscovery)

	// a lone Relay only enables its intercom once it has seen a peer
	if cfg.Mod.Active {
		if err := start(); err != nil {
			log.Error().Err(err).Msg("[discovery] start")
		}
	}
}

var advertisePort int
var oneshot bool
var deviceType string
var log zerolog.Logger

var mu sync.Mutex
var responder *ssdp.Responder

func start() error {
	mu.Lock()
	defer mu.Unlock()

	if running() {
		return nil
	}

	r := ssdp.NewResponder(ssdp.Config{
		Host:          broadcast.Host(),
		AdvertisePort: advertisePort,
		DeviceType:    deviceType,
		OneShot:       oneshot,
		Log:           log,
	})
	if err := r.Start(); err != nil {
		return err
	}

	responder = r
	log.Info().Bool("oneshot", oneshot).Msg("[discovery] responder started")
	return nil
}

func stop() {
	mu.Lock()
	defer mu.Unlock()

	if responder == nil {
		return
	}

	responder.Stop()
	responder = nil
	log.Info().Msg("[discovery] responder stopped")
}

// running must be called with mu held.
func running() bool {
	if responder == nil {
		return false
	}
	select {
	case <-responder.Done():
		// one-shot responder already answered and exited
		responder = nil
		return false
	default:
		return true
	}
}

func apiDiscovery(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		mu.Lock()
		state := "stopped"
		if running() {
			state = "running"
		}
		mu.Unlock()
		api.ResponseJSON(w, map[string]string{"state": state})

	case "POST":
		var err error
		switch r.URL.Query().Get("run") {
		case "start":
			err = start()
		case "stop":
			stop()
		default:
			http.Error(w, "run must be start or stop", http.StatusBadRequest)
			return
		}
		if err != nil {
			api.Error(w, err)
			return
		}
		api.Response(w, "OK", api.MimeText)

	default:
		http.Error(w, "", http.StatusBadRequest)
	}
}
