// Command probe is a headless participant: it joins a Gather hub, can
// register a name, answer calls and sit in a meeting room, and logs what
// it sees. Useful for checking a deployment's signalling end to end.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Gather/internal/adapters/rtc"
	"github.com/dkeye/Gather/internal/domain"
	"github.com/dkeye/Gather/internal/endpoint"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/api/ws/signal", "hub websocket URL")
	name := flag.String("name", "", "display name to register")
	room := flag.String("room", "", "meeting room to join")
	call := flag.String("call", "", "display name to call once it is online")
	accept := flag.Bool("accept", true, "accept incoming calls")
	loopback := flag.Bool("loopback", false, "gather loopback ICE candidates")
	duration := flag.Duration("duration", 0, "exit after this long (0 runs until interrupted)")
	debug := flag.Bool("debug", false, "log every inbound frame")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	factory, err := rtc.Factory(rtc.Options{Config: rtc.DefaultWebRTCConfig(), IncludeLoopback: *loopback})
	if err != nil {
		log.Fatal().Err(err).Msg("webrtc setup")
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := endpoint.Dial(dialCtx, *url, factory, endpoint.Options{
		AutoAccept: *accept,
		OnEvent: func(ev endpoint.Event) {
			log.Debug().Str("type", ev.Type).RawJSON("frame", ev.Data).Msg("inbound")
		},
	})
	dialCancel()
	if err != nil {
		log.Fatal().Err(err).Str("url", *url).Msg("dial")
	}
	defer c.Close()
	log.Info().Str("sid", string(c.ID())).Msg("joined")

	if *name != "" {
		if err := c.Register(*name); err != nil {
			log.Error().Err(err).Msg("register")
		}
	}
	if *room != "" {
		if err := c.JoinRoom(domain.RoomName(*room)); err != nil {
			log.Error().Err(err).Msg("join room")
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	target := *call
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("leaving")
			return
		case <-c.Done():
			log.Warn().Msg("hub closed the connection")
			return
		case <-ticker.C:
			if target != "" {
				if peer, ok := c.Online()[target]; ok && peer != c.ID() {
					if err := c.Call(peer, *name); err != nil {
						log.Error().Err(err).Msg("call")
					}
					target = ""
				}
			}
			log.Info().
				Int("players", len(c.Players())).
				Strs("calls", ids(c.Calls.Peers())).
				Strs("mesh", ids(c.Mesh.Peers())).
				Msg("status")
		}
	}
}

func ids(in []domain.SessionID) []string {
	out := make([]string, len(in))
	for i, id := range in {
		out[i] = string(id)
	}
	return out
}
