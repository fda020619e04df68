// Package viewer serves the accumulated spectrum over HTTP.
package viewer

import (
	"bytes"
	"context"
	"flag"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/labstack/echo"

	fx "github.com/robotalks/spectrig/pkg/framework"
	"github.com/robotalks/spectrig/pkg/l1/msgs"
	"github.com/robotalks/spectrig/pkg/l1/spect/histfile"
)

// Source provides the data to display.
type Source interface {
	// Spectrum captures the spectrum, threshold 0 selects the default.
	Spectrum(threshold uint16, withCounts bool) *msgs.Spectrum
	Props(context.Context) ([]msgs.PropValue, error)
	// Export captures the histogram text export.
	Export() *histfile.File
}

// Config defines the viewer options.
type Config struct {
	// Listen is the HTTP address, the viewer is disabled when empty.
	Listen string
}

var defaultConfig Config

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Listen, "viewer", defaultConfig.Listen, "Spectrum viewer listen address, e.g. :8080")
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Enabled tells whether the viewer should run.
func (c *Config) Enabled() bool {
	return c.Listen != ""
}

// NewServer creates a Server using the config.
func (c *Config) NewServer(src Source) *Server {
	s := NewServer(src)
	s.Listen = c.Listen
	return s
}

// CPM is the rate reply of /api/cpm.
type CPM struct {
	Cpm         float64 `json:"cpm"`
	Threshold   uint32  `json:"threshold"`
	LiveSeconds float64 `json:"live_seconds"`
	Total       uint64  `json:"total"`
	Running     bool    `json:"running"`
}

// PropsTimeout bounds reading the board properties.
const PropsTimeout = 3 * time.Second

// Server is the viewer HTTP server.
type Server struct {
	Listen string
	Source Source
	Echo   *echo.Echo
}

// NewServer creates a Server with routes registered.
func NewServer(src Source) *Server {
	s := &Server{Source: src, Echo: echo.New()}
	s.Echo.HideBanner = true
	s.Echo.GET("/", s.index)
	s.Echo.GET("/api/spectrum", s.spectrum)
	s.Echo.GET("/api/props", s.props)
	s.Echo.GET("/api/cpm", s.cpm)
	s.Echo.GET("/data.txt", s.data)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Echo.ServeHTTP(w, r)
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	glog.Infof("viewer listening on %s", s.Listen)
	return fx.RunWithContextCancel(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Echo.Shutdown(shutdownCtx)
	}, func() error {
		if err := s.Echo.Start(s.Listen); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}

func thresholdParam(c echo.Context) (uint16, error) {
	val := c.QueryParam("threshold")
	if val == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(val, 10, 12)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid threshold")
	}
	return uint16(n), nil
}

func (s *Server) spectrum(c echo.Context) error {
	threshold, err := thresholdParam(c)
	if err != nil {
		return err
	}
	withCounts := c.QueryParam("counts") != "false"
	return c.JSON(http.StatusOK, s.Source.Spectrum(threshold, withCounts))
}

func (s *Server) cpm(c echo.Context) error {
	threshold, err := thresholdParam(c)
	if err != nil {
		return err
	}
	spect := s.Source.Spectrum(threshold, false)
	return c.JSON(http.StatusOK, &CPM{
		Cpm:         spect.Cpm,
		Threshold:   spect.CpmThreshold,
		LiveSeconds: spect.LiveSeconds,
		Total:       spect.Total,
		Running:     spect.Running,
	})
}

func (s *Server) props(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), PropsTimeout)
	defer cancel()
	props, err := s.Source.Props(ctx)
	if err != nil {
		glog.V(2).Infof("props: %v", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, props)
}

func (s *Server) data(c echo.Context) error {
	var buf bytes.Buffer
	if _, err := s.Source.Export().WriteTo(&buf); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, buf.Bytes())
}

func (s *Server) index(c echo.Context) error {
	return c.HTML(http.StatusOK, indexHTML)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>spectrig</title></head>
<body>
<canvas id="spectrum" width="1024" height="400"></canvas>
<pre id="status"></pre>
<script>
function refresh() {
  fetch('/api/spectrum').then(r => r.json()).then(s => {
    const cv = document.getElementById('spectrum');
    const g = cv.getContext('2d');
    const counts = s.counts || [];
    let max = 1;
    counts.forEach(n => { if (n > max) max = n; });
    g.clearRect(0, 0, cv.width, cv.height);
    counts.forEach((n, i) => {
      const h = Math.log(1 + n) / Math.log(1 + max) * cv.height;
      g.fillRect(i * cv.width / counts.length, cv.height - h, 1, h);
    });
    document.getElementById('status').textContent =
      'total ' + s.total + '  live ' + s.live_seconds.toFixed(1) + 's  cpm ' + s.cpm.toFixed(1) +
      (s.running ? '  running' : '  stopped');
  });
}
setInterval(refresh, 1000);
refresh();
</script>
</body>
</html>
`
