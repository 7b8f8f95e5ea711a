package render

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/chart"
	"github.com/mpapenbr/racedash/pkg/chart/echarts"
	"github.com/mpapenbr/racedash/pkg/cmd/cmdutil"
	"github.com/mpapenbr/racedash/pkg/config"
	"github.com/mpapenbr/racedash/pkg/dashboard"
	"github.com/mpapenbr/racedash/pkg/web"
)

var writeJSON bool

func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "writes the dashboard as static html files",
		Long: `Writes one html file per section, index.html and charts.html containing all
charts. Chart failures end up as warning panels, only write errors fail the command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cmdutil.SetupLogger(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := cmdutil.NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			r := echarts.New(echarts.WithAssetsHost(config.AssetsHost))
			return Write(ctx, app.Dispatcher, r, config.OutputDir, writeJSON)
		},
	}
	cmd.Flags().StringVarP(&config.OutputDir,
		"out",
		"o",
		"./site",
		"target directory")
	cmd.Flags().StringVar(&config.AssetsHost,
		"assets-host",
		echarts.DefaultAssetsHost,
		"url prefix the browser loads the echarts scripts from")
	cmd.Flags().BoolVar(&writeJSON,
		"json",
		false,
		"also write the view of each section as json")
	return cmd
}

// Write renders every section of views into dir.
func Write(
	ctx context.Context, views web.ViewSource, r *echarts.Renderer, dir string, withJSON bool,
) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	pages := web.NewPageRenderer(views, r, web.FileHref)
	all := []chart.Description{}
	for _, s := range dashboard.Sections() {
		view, err := views.Dispatch(ctx, s)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dir, web.FileHref(s)), func(f *os.File) error {
			return pages.Write(f, view)
		}); err != nil {
			return err
		}
		if s == dashboard.Overview {
			if err := writeFile(filepath.Join(dir, "index.html"), func(f *os.File) error {
				return pages.Write(f, view)
			}); err != nil {
				return err
			}
		}
		if withJSON {
			if err := writeFile(filepath.Join(dir, string(s)+".json"), func(f *os.File) error {
				enc := json.NewEncoder(f)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}); err != nil {
				return err
			}
		}
		for _, p := range view.Panels {
			if p.Kind == dashboard.KindChart {
				all = append(all, *p.Chart)
			}
		}
		log.Info("section written",
			log.String("section", string(s)),
			log.Int("panels", len(view.Panels)),
			log.String("error", view.Error))
	}
	return writeFile(filepath.Join(dir, "charts.html"), func(f *os.File) error {
		return r.Page(f, views.Story().Title, all...)
	})
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
