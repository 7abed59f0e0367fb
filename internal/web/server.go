package web

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/highload-stats/server/internal/history"
	"github.com/highload-stats/server/internal/hub"
	"github.com/highload-stats/server/internal/telemetry"
)

// routePrefix is stripped from every request path, with the access key
// appended when one is configured.
const routePrefix = "/highload-stats"

// Server is the thin HTTP collaborator around the core: static viewer
// assets, the websocket upgrade, the telemetry blob, and the raw
// history file, all behind the optional access-key gate.
type Server struct {
	webDir    string
	accessKey string
	hub       *hub.Hub
	history   *history.Log
	snapshot  *telemetry.Snapshot
	upgrader  websocket.Upgrader
}

func NewServer(webDir, accessKeyFile string, h *hub.Hub, hist *history.Log, snap *telemetry.Snapshot) *Server {
	s := &Server{
		webDir:   webDir,
		hub:      h,
		history:  hist,
		snapshot: snap,
		upgrader: websocket.Upgrader{
			// The viewer page is served by this same process; cross-origin
			// access is already gated by the access key.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.accessKey = loadAccessKey(accessKeyFile)
	return s
}

// loadAccessKey reads the optional key file. A missing file disables
// the gate.
func loadAccessKey(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	key := strings.TrimSpace(string(data))
	if key != "" {
		log.Printf("[web] access key detected")
	}
	return key
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if s.accessKey != "" {
		if !strings.Contains(path, s.accessKey) {
			log.Printf("[web] failed check access key")
			http.Error(w, "highload-stats: 403", http.StatusForbidden)
			return
		}
		path = strings.Replace(path, routePrefix+"/"+s.accessKey, "", 1)
	} else {
		path = strings.Replace(path, routePrefix, "", 1)
	}
	if path == "" {
		path = "/"
	}

	switch path {
	case "/ws":
		s.handleWS(w, r)
	case "/telemetry":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, s.snapshot.Render(r.Context()))
	case "/history.db":
		http.ServeFile(w, r, s.history.Path())
	default:
		s.serveStatic(w, r, path)
	}
}

// staticRoutes maps request paths to viewer asset files under webDir.
var staticRoutes = map[string]string{
	"/":            "index.html",
	"/history":     "history.html",
	"/jquery.js":   "jquery.js",
	"/highcharts.js": "highcharts.js",
	"/common.js":   "common.js",
	"/history.js":  "history.js",
	"/common.css":  "common.css",
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request, path string) {
	file, ok := staticRoutes[path]
	if !ok {
		http.Error(w, "highload-stats: 404", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.webDir, file))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	// Connect blocks on the session read loop; the handler goroutine is
	// dedicated to this peer anyway.
	s.hub.Connect(conn, r.RemoteAddr)
}

func ListenAndServe(host string, port int, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("[web] listening on %s", addr)
	return http.ListenAndServe(addr, handler)
}
