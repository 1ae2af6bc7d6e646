package web

import (
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"dependabot-stats/connectors/render"
	"dependabot-stats/domain/metrics"
)

// Run starts a small Echo web server exposing a collected report as JSON and an optional
// SPA dashboard.
//
// Usage:
//
//	dependabot-stats web [-addr :8080] [-file ./data/report.json] [-ui ./ui/dist]
//
// Endpoints:
//
//	GET /healthz
//	GET /api/report               -> run metadata without snapshots
//	GET /api/snapshots            -> every bucket
//	GET /api/snapshots/:key       -> one bucket (404 if unknown)
//
// The report file is read on every request so a fresh collect run is picked up without a restart.
func Run(args []string) error {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "http listen address (host:port)")
	file := fs.String("file", "./data/report.json", "report written by collect -format json")
	uiDir := fs.String("ui", "./ui/dist", "directory containing built UI (Vite dist)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e := NewServer(*file, *uiDir)
	slog.Info("web.start", "addr", *addr, "file", *file)
	return e.Start(*addr)
}

// NewServer registers the API routes serving the report at path.
func NewServer(path, uiDir string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	withReport := func(fn func(c echo.Context, r metrics.Report) error) echo.HandlerFunc {
		return func(c echo.Context) error {
			r, err := readReport(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return c.JSON(http.StatusNotFound, map[string]any{
						"error":   "file not found",
						"path":    path,
						"message": "report file is missing, run collect -format json first",
					})
				}
				return c.JSON(http.StatusInternalServerError, map[string]any{
					"error":   err.Error(),
					"path":    path,
					"message": "failed to read report",
				})
			}
			return fn(c, r)
		}
	}

	e.GET("/api/report", withReport(func(c echo.Context, r metrics.Report) error {
		r.Snapshots = nil
		return c.JSON(http.StatusOK, r)
	}))
	e.GET("/api/snapshots", withReport(func(c echo.Context, r metrics.Report) error {
		return c.JSON(http.StatusOK, r.Snapshots)
	}))
	e.GET("/api/snapshots/:key", withReport(func(c echo.Context, r metrics.Report) error {
		s, ok := r.Snapshot(c.Param("key"))
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]any{
				"error": "snapshot not found",
				"key":   c.Param("key"),
			})
		}
		return c.JSON(http.StatusOK, s)
	}))

	// Static UI (optional)
	indexPath := filepath.Join(uiDir, "index.html")
	if fi, err := os.Stat(indexPath); err == nil && !fi.IsDir() {
		e.Static("/", uiDir)
		e.GET("/", func(c echo.Context) error { return c.File(indexPath) })

		// Non-API 404s fall back to index.html for SPA routing
		e.HTTPErrorHandler = func(err error, c echo.Context) {
			if he, ok := err.(*echo.HTTPError); ok && he.Code == http.StatusNotFound {
				if !strings.HasPrefix(c.Request().URL.Path, "/api") {
					_ = c.File(indexPath)
					return
				}
			}
			e.DefaultHTTPErrorHandler(err, c)
		}
	}
	return e
}

func readReport(path string) (metrics.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return metrics.Report{}, err
	}
	defer f.Close()
	return render.ReadJSON(f)
}
