package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-roulette/internal/config"
	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/discovery"
	"github.com/teslashibe/go-roulette/pkg/session"
	"github.com/teslashibe/go-roulette/pkg/sink"
	"github.com/teslashibe/go-roulette/pkg/source"
	"github.com/teslashibe/go-roulette/pkg/web"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a prediction session on a camera, video or image directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPipeline(ctx, cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("source", "", "camera index, video file, stream URL or image directory")
	flags.String("kind", "", "source kind: capture or directory")
	flags.Float64("fps", 0, "target processing rate in frames per second")
	flags.String("addr", "", "dashboard listen address")
	flags.Bool("no-web", false, "disable the dashboard")
	flags.Bool("redis", false, "publish cycles to Redis")
	flags.String("forward", "", "forward cycles to a ws:// or wss:// collector")
	flags.String("tracking-preset", "", "tracking preset: default, responsive or steady")

	_ = a.v.BindPFlag("source.uri", flags.Lookup("source"))
	_ = a.v.BindPFlag("source.kind", flags.Lookup("kind"))
	_ = a.v.BindPFlag("session.target_fps", flags.Lookup("fps"))
	_ = a.v.BindPFlag("web.addr", flags.Lookup("addr"))
	_ = a.v.BindPFlag("redis.enabled", flags.Lookup("redis"))
	_ = a.v.BindPFlag("forward.url", flags.Lookup("forward"))
	_ = a.v.BindPFlag("tracking_preset", flags.Lookup("tracking-preset"))

	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		if noWeb, _ := cmd.Flags().GetBool("no-web"); noWeb {
			a.v.Set("web.enabled", false)
		}
		if url, _ := cmd.Flags().GetString("forward"); url != "" {
			a.v.Set("forward.enabled", true)
		}
	}

	return cmd
}

// runPipeline wires source, session, sinks and dashboard and blocks until
// the source is exhausted or ctx is cancelled.
func runPipeline(ctx context.Context, cfg config.Config, out io.Writer) error {
	logger := log.Component("run")

	src, err := source.Open(cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	sess, err := session.Start(cfg.Session)
	if err != nil {
		return err
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close sink", "error", err)
			}
		}
	}()
	async := func(s session.Sink) session.Sink {
		a := sink.NewAsync(s)
		closers = append(closers, a)
		return a
	}

	sinks := sink.Multi{async(sink.NewLog(nil))}

	if cfg.Redis.Enabled {
		r, err := sink.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		closers = append(closers, r)
		sinks = append(sinks, async(r))
	}

	if cfg.Forward.Enabled {
		var opts []sink.WebSocketOption
		if cfg.Forward.PredictionsOnly {
			opts = append(opts, sink.PredictionsOnly())
		}
		ws := sink.NewWebSocket(cfg.Forward.URL, opts...)
		closers = append(closers, ws)
		sinks = append(sinks, async(ws))
	}

	if cfg.Web.Enabled {
		server := web.NewServer(cfg.Web, sess, nil)
		server.StartAsync()
		defer func() {
			if err := server.Shutdown(); err != nil {
				logger.Warn("dashboard shutdown", "error", err)
			}
		}()
		sinks = append(sinks, async(server))

		if cfg.Discovery.Enabled {
			defer advertise(cfg, sess.ID())()
		}
	}

	runner := session.NewRunner(sess, src, sinks)
	fmt.Fprintf(out, "session %s started\n", sess.ID())

	runErr := runner.Run(ctx)
	writeSummary(out, sess.Status(), runner.Stats())
	return runErr
}

func advertise(cfg config.Config, sessionID string) func() {
	logger := log.Component("run")

	port, err := discovery.PortFromAddr(cfg.Web.Addr)
	if err != nil {
		logger.Warn("dashboard not advertised", "error", err)
		return func() {}
	}
	adv := discovery.NewAdvertiser(cfg.Discovery.Instance, port, sessionID)
	if err := adv.Start(); err != nil {
		logger.Warn("dashboard not advertised", "error", err)
		return func() {}
	}
	return adv.Stop
}

func writeSummary(out io.Writer, st session.Status, rs session.RunnerStats) {
	fmt.Fprintf(out, "session %s %s: %d frames, %d cycles, %d skipped, %d discarded, detection rate %.2f\n",
		st.ID, st.State, st.Counters.FramesProcessed, rs.Cycles, rs.Skipped, rs.Discarded, st.Counters.DetectionRate())
	fmt.Fprintf(out, "cycle time: mean %s, max %s\n", rs.MeanCycle, rs.MaxCycle)
}
