package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/chart/echarts"
	"github.com/mpapenbr/racedash/pkg/cmd/cmdutil"
	"github.com/mpapenbr/racedash/pkg/config"
	"github.com/mpapenbr/racedash/pkg/web"
)

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ServerAddr,
		"addr",
		"a",
		"localhost:8080",
		"dashboard server listen address")
	cmd.Flags().StringVar(&config.AssetsHost,
		"assets-host",
		echarts.DefaultAssetsHost,
		"url prefix the browser loads the echarts scripts from")
	cmd.Flags().StringVar(&config.TLSCertFile,
		"tls-cert",
		"",
		"file containing the TLS certificate, enables https together with --tls-key")
	cmd.Flags().StringVar(&config.TLSKeyFile,
		"tls-key",
		"",
		"file containing the TLS key")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

//nolint:funlen // by design
func startServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := cmdutil.SetupLogger(); err != nil {
		return err
	}
	log.Debug("Config:",
		log.String("source", config.Source),
		log.String("cacheDir", config.CacheDir),
		log.Bool("db", config.DB != ""),
		log.String("story", config.StoryFile),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	telemetry := cmdutil.SetupTelemetry(ctx)
	if telemetry != nil {
		defer telemetry.Shutdown()
	}

	app, err := cmdutil.NewApp(ctx)
	if err != nil {
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}
	defer app.Close()

	handler := web.NewHandler(app.Dispatcher,
		web.WithCache(app.Sessions),
		web.WithRenderer(echarts.New(echarts.WithAssetsHost(config.AssetsHost))))

	//nolint:gosec // by design
	server := &http.Server{
		Addr:    config.ServerAddr,
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if config.TLSCertFile != "" && config.TLSKeyFile != "" {
		server.TLSConfig = newTLSConfig(watchCtx, config.TLSCertFile, config.TLSKeyFile)
		if server.TLSConfig == nil {
			return errors.New("could not setup TLS")
		}
	}
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting dashboard server",
			log.String("addr", config.ServerAddr),
			log.Bool("tls", server.TLSConfig != nil),
			log.String("session", app.Key.String()))
		var err error
		if server.TLSConfig != nil {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()
	setupGoRoutinesDump()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case v := <-sigChan:
		log.Debug("Got signal ", log.Any("signal", v))
	case err := <-errChan:
		if err != nil {
			log.Error("server could not be started", log.ErrorField(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", log.ErrorField(err))
	}
	log.Info("Server terminated")
	return nil
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}
