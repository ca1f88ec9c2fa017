package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/patchkernel/engine/cache"
	"github.com/patchkernel/engine/dindex"
	"github.com/patchkernel/engine/httpapi"
	"github.com/patchkernel/engine/internal/cliutil"
	"github.com/patchkernel/engine/player"
	"github.com/patchkernel/engine/render"
	"github.com/patchkernel/engine/schedule"
	"github.com/patchkernel/engine/sink"
	"github.com/patchkernel/engine/valuestore"
)

func newRunCmd() *cobra.Command {
	var (
		maxFPS      float64
		loop        bool
		loopMs      float64
		startPaused bool
		serve       bool
		grpcAddr  string
		httpAddr  string
		jwtSecret string
	)
	cmd := &cobra.Command{
		Use:   "run <patch-file>",
		Short: "compile (or reuse the cached program) and run it headless until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cache.Open(flagCacheDir)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			defer store.Close()

			result, err := cliutil.Compile(args[0])
			if err != nil {
				return err
			}
			printDiagnostics(result.Diagnostics)
			if result.Program == nil {
				return fmt.Errorf("run: %d error diagnostic(s)", countErrors(result.Diagnostics))
			}

			prog := result.Program
			if cached, ok, err := store.Get(prog.Fingerprint); err == nil && ok {
				log.Info("reusing cached program", "fingerprint", cached.Fingerprint.Hex())
				prog = cached
			} else if err := store.Put(prog); err != nil {
				log.Warn("caching compiled program failed", "err", err)
			}

			exec := schedule.New(prog, cliutil.BuiltinTransformRegistry(), nil, false)

			var sinkServer *sink.Server
			if serve {
				sinkServer = sink.NewServer()
				gs := grpc.NewServer()
				sinkServer.Register(gs)
				lis, err := net.Listen("tcp", grpcAddr)
				if err != nil {
					return fmt.Errorf("listening on %s: %w", grpcAddr, err)
				}
				go func() {
					log.Info("sink server listening", "addr", grpcAddr)
					if err := gs.Serve(lis); err != nil {
						log.Error("sink server stopped", "err", err)
					}
				}()

				debugIndex := func() *dindex.DebugIndex { return prog.Debug }
				auth := httpapi.NewAuth([]byte(jwtSecret))
				httpServer := httpapi.New(exec.Diagnostics(), debugIndex, auth)
				go func() {
					log.Info("http api listening", "addr", httpAddr)
					if err := http.ListenAndServe(httpAddr, httpServer.Router(nil)); err != nil {
						log.Error("http api stopped", "err", err)
					}
				}()
			}

			onFrame := func(frame render.Frame, view valuestore.View) {
				if sinkServer != nil {
					sinkServer.Publish(frame, view)
				}
			}

			p := player.New(exec, onFrame, player.Config{MaxFPS: maxFPS, Loop: loop, StartPaused: startPaused})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log.Info("running", "patch", args[0], "loopMs", loopMs)
			if err := p.Run(ctx, loopMs); err != nil && ctx.Err() == nil {
				return fmt.Errorf("run: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&maxFPS, "max-fps", 60, "tick-rate cap, 0 disables capping")
	cmd.Flags().BoolVar(&loop, "loop", false, "loop playback at --loop-ms")
	cmd.Flags().Float64Var(&loopMs, "loop-ms", 0, "model-time duration a looped run wraps at")
	cmd.Flags().BoolVar(&startPaused, "start-paused", false, "start in paused mode; first tick derives the frame at tAbsMs=0 without advancing")
	cmd.Flags().BoolVar(&serve, "serve", false, "start the gRPC sink and HTTP API servers")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", ":9090", "sink gRPC listen address")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP API listen address")
	cmd.Flags().StringVar(&jwtSecret, "jwt-secret", "", "HMAC secret for HTTP API bearer tokens")
	return cmd
}
