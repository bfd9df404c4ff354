package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camrec/camrec"
	"github.com/camrec/camrec/internal/config"
	"github.com/camrec/camrec/internal/metrics"
	"github.com/camrec/camrec/pkg/driver/availability"
	"github.com/camrec/camrec/pkg/driver/camera"
	"github.com/camrec/camrec/pkg/mediastore"
	"github.com/camrec/camrec/pkg/permission"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var recordFlags struct {
	source      string
	resolution  string
	device      string
	output      string
	gallery     string
	metricsAddr string
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record clips interactively",
	Long: `record reads commands from standard input:

  720p, 1080p, 4K   select the resolution of the next recording
  start, stop       start or stop a recording
  status            show the recording state and the last clip
  list              list the clips saved in the gallery
  quit              stop any recording and exit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		flags := cmd.Flags()
		overrides := map[string]*string{
			"source":       &c.Source,
			"resolution":   &c.Resolution,
			"device":       &c.Device,
			"output":       &c.OutputDir,
			"gallery":      &c.GalleryDir,
			"metrics-addr": &c.MetricsAddr,
		}
		values := map[string]string{
			"source":       recordFlags.source,
			"resolution":   recordFlags.resolution,
			"device":       recordFlags.device,
			"output":       recordFlags.output,
			"gallery":      recordFlags.gallery,
			"metrics-addr": recordFlags.metricsAddr,
		}
		for name, dst := range overrides {
			if flags.Changed(name) {
				*dst = values[name]
			}
		}
		if err := config.Validate(c); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return record(ctx, c, cmd)
	},
}

func init() {
	f := recordCmd.Flags()
	f.StringVar(&recordFlags.source, "source", "", "Video source: camera, videotest or command")
	f.StringVar(&recordFlags.resolution, "resolution", "", "Initial resolution: 720p, 1080p or 4K")
	f.StringVar(&recordFlags.device, "device", "", "Only use cameras whose label or path contains this")
	f.StringVar(&recordFlags.output, "output", "", "Directory clips are recorded into")
	f.StringVar(&recordFlags.gallery, "gallery", "", "Gallery directory finished clips are saved into")
	f.StringVar(&recordFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

func record(ctx context.Context, c config.Config, cmd *cobra.Command) error {
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	filter, err := sourceFilter(c)
	if err != nil {
		return err
	}
	dev, err := selectDevice(c, filter)
	if err != nil {
		return err
	}

	opts := []camrec.ControllerOption{
		camrec.WithResolution(c.Resolution),
		camrec.WithSaveTimeout(c.SaveTimeout),
	}
	var gallery *mediastore.Gallery
	if c.GalleryDir != "" {
		if gallery, err = mediastore.NewGallery(c.GalleryDir); err != nil {
			return err
		}
		opts = append(opts,
			camrec.WithMediaStore(gallery),
			camrec.WithMediaPermission(&permission.Dir{Path: gallery.Dir()}),
		)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sh := newShell(readLines(cmd.InOrStdin()), cmd.OutOrStdout(), gallery, func(ask askFunc) *camrec.Controller {
		return camrec.NewController(dev, append(opts, camrec.WithPermission(newPermission(c, dev, ask)))...)
	})
	ctrl := sh.ctrl
	sh.reselect = func() (camrec.Camera, error) {
		return selectDevice(c, filter)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ctrl.Subscribe(metrics.New(reg).Observe)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return sh.run(gctx)
	})

	if c.Source == config.SourceCamera {
		g.Go(func() error {
			err := camera.Watch(gctx)
			if errors.Is(err, availability.ErrUnimplemented) {
				return nil
			}
			return err
		})
	}

	if c.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: c.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
