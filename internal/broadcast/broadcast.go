package broadcast

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/relaycast/relaycast/internal/api"
	"github.com/relaycast/relaycast/internal/app"
	"github.com/relaycast/relaycast/internal/ffmpeg"
	"github.com/relaycast/relaycast/pkg/relay"
	"github.com/relaycast/relaycast/pkg/xnet"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Host    string  `yaml:"host"`
			Netmask string  `yaml:"netmask"`
			Port    int     `yaml:"port"`
			Convert bool    `yaml:"convert"`
			Boost   float64 `yaml:"boost"`
			Legacy  bool    `yaml:"legacy"`
		} `yaml:"broadcast"`
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("broadcast")

	if cfg.Mod.Host == "" {
		cfg.Mod.Host, cfg.Mod.Netmask = detectHost()
		if cfg.Mod.Host == "" {
			log.Error().Msg("[broadcast] no usable interface, set broadcast.host")
			return
		}
		log.Info().Str("host", cfg.Mod.Host).Str("netmask", cfg.Mod.Netmask).Msg("[broadcast] detected interface")
	}

	timing := relay.DefaultTiming()
	if cfg.Mod.Legacy {
		timing = relay.LegacyTiming()
	}

	b, err := relay.NewBroadcaster(relay.Config{
		Host:      cfg.Mod.Host,
		Netmask:   cfg.Mod.Netmask,
		Port:      cfg.Mod.Port,
		Convert:   cfg.Mod.Convert,
		BoostDB:   cfg.Mod.Boost,
		Converter: ffmpeg.Converter(),
		Timing:    &timing,
		Log:       log,
	})
	if err != nil {
		log.Error().Err(err).Msg("[broadcast] init")
		return
	}

	host = cfg.Mod.Host
	broadcaster = b

	app.Info["broadcast"] = b.Addr()
	log.Info().Str("addr", b.Addr()).Msg("[broadcast] ready")

	api.HandleFunc("api/send", sendHandler)
	api.HandleFunc("api/boost", boostHandler)
	api.HandleFunc("api/ws", wsHandler)
}

// Host returns the configured or detected interface address. Empty
// until Init succeeds.
func Host() string {
	return host
}

// detectHost picks the first usable non-docker IPv4 interface.
func detectHost() (string, string) {
	nets, err := xnet.IPNets(func(ip net.IP) bool {
		return !xnet.Docker.Contains(ip)
	})
	if err != nil || len(nets) == 0 {
		return "", ""
	}
	return nets[0].IP.String(), net.IP(nets[0].Mask).String()
}

var broadcaster *relay.Broadcaster
var host string
var log zerolog.Logger

func sendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	if broadcaster == nil {
		http.Error(w, "broadcast not configured", http.StatusServiceUnavailable)
		return
	}

	// exactly one source: a file path or the request body
	src := r.URL.Query().Get("src")
	body, _ := io.ReadAll(r.Body)

	var err error
	switch {
	case src != "" && len(body) > 0:
		err = errors.New("both src and body provided")
	case src != "":
		err = broadcaster.SendFile(src)
	case len(body) > 0:
		err = broadcaster.Send(body)
	default:
		err = relay.ErrNoData
	}

	if err != nil {
		log.Error().Err(err).Msg("[broadcast] send")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	api.Response(w, "OK", api.MimeText)
}

func boostHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	if broadcaster == nil {
		http.Error(w, "broadcast not configured", http.StatusServiceUnavailable)
		return
	}

	db, err := strconv.ParseFloat(r.URL.Query().Get("db"), 64)
	if err != nil {
		http.Error(w, "db must be a number", http.StatusBadRequest)
		return
	}

	broadcaster.SetBoost(db)
	api.Response(w, "OK", api.MimeText)
}
