package wshost

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"lukechampine.com/frand"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
)

const (
	MOD_NAME = "WSHost"

	// TokenHeader carries the surface token on API calls. Surface websockets pass it as the
	// token query parameter.
	TokenHeader = "X-Surface-Token"

	surfaceTokenLen = 32
)

var ErrSurfaceNotConnected = errors.New("surface not connected")

// Config configures the host. An empty SurfaceToken is replaced with a random one per run.
type Config struct {
	Addr         string
	SurfaceURL   string
	SurfaceToken string
	OpenCommand  string
	WriteTimeout time.Duration
}

// Router receives what pages and surfaces send.
type Router interface {
	Route(ctx context.Context, req *tprltypes.BackgroundRequest) error

	SurfaceClosed(location string)
}

type page struct {
	id   string
	conn *websocket.Conn
}

// WSHost lets wallet surfaces and dApp pages reach the relay over websockets. The page that
// connected or spoke last is the active tab.
type WSHost struct {
	log      tplog.Logger
	config   Config
	origin   string // scheme://host of SurfaceURL
	gatherer prometheus.Gatherer
	server   *http.Server
	ctx      context.Context
	cancel   context.CancelFunc

	mtx      sync.RWMutex
	router   Router
	surfaces map[string]*websocket.Conn
	pages    []*page // least recently active first
	mounts   map[string]http.Handler
}

func NewWSHost(log tplog.Logger, config Config, gatherer prometheus.Gatherer) *WSHost {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.SurfaceToken == "" {
		config.SurfaceToken = hex.EncodeToString(frand.Bytes(surfaceTokenLen))
	}

	hostLog := tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log)
	origin, err := surfaceOrigin(config.SurfaceURL)
	if err != nil {
		hostLog.Warnf("Surface URL %q unusable, only origin-less surface clients are accepted: %v", config.SurfaceURL, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WSHost{
		log:      hostLog,
		config:   config,
		origin:   origin,
		gatherer: gatherer,
		ctx:      ctx,
		cancel:   cancel,
		surfaces: make(map[string]*websocket.Conn),
		mounts:   make(map[string]http.Handler),
	}
}

func surfaceOrigin(surfaceURL string) (string, error) {
	u, err := url.Parse(surfaceURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("no scheme or host in %q", surfaceURL)
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}

// Token is the secret a wallet surface presents. The opener hands it over in the URL fragment.
func (h *WSHost) Token() string {
	return h.config.SurfaceToken
}

// requireSurface admits only the wallet surface: the Origin, when sent, must be the surface
// origin and the token must match.
func (h *WSHost) requireSurface(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && (h.origin == "" || !strings.EqualFold(origin, h.origin)) {
			h.log.Warnf("Refused %s %s from origin %s", r.Method, r.URL.Path, origin)
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		token := r.Header.Get(TokenHeader)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.config.SurfaceToken)) != 1 {
			h.log.Warnf("Refused %s %s without a valid surface token", r.Method, r.URL.Path)
			http.Error(w, "invalid surface token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Mount serves handler under pattern next to the websocket routes, for the wallet surface only.
// Call it before Start.
func (h *WSHost) Mount(pattern string, handler http.Handler) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	h.mounts[pattern] = handler
}

func (h *WSHost) SetRouter(router Router) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	h.router = router
}

func (h *WSHost) currentRouter() Router {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	return h.router
}

func (h *WSHost) Handler() http.Handler {
	r := chi.NewRouter()
	r.With(h.requireSurface).Get("/ws/surface", h.handleSurface)
	r.Get("/ws/page", h.handlePage)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	h.mtx.RLock()
	for pattern, handler := range h.mounts {
		r.Mount(pattern, h.requireSurface(handler))
	}
	h.mtx.RUnlock()
	return r
}

func (h *WSHost) Start() error {
	h.server = &http.Server{
		Addr:              h.config.Addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		h.log.Infof("Websocket host listening on %s", h.config.Addr)
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Errorf("Websocket host stopped: %v", err)
		}
	}()
	return nil
}

func (h *WSHost) Stop(ctx context.Context) error {
	h.cancel()
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

func (h *WSHost) handleSurface(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		http.Error(w, "missing location", http.StatusBadRequest)
		return
	}

	var patterns []string
	if u, err := url.Parse(h.origin); err == nil && u.Host != "" {
		patterns = []string{u.Host}
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: patterns})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "surface closed")

	h.mtx.Lock()
	if old, ok := h.surfaces[location]; ok {
		old.Close(websocket.StatusPolicyViolation, "replaced by a newer surface")
	}
	h.surfaces[location] = conn
	h.mtx.Unlock()
	h.log.Debugf("Surface %s connected", location)

	h.readLoop(r.Context(), conn, location, nil)

	h.mtx.Lock()
	if h.surfaces[location] == conn {
		delete(h.surfaces, location)
	}
	h.mtx.Unlock()

	if router := h.currentRouter(); router != nil {
		router.SurfaceClosed(location)
	}
	h.log.Debugf("Surface %s disconnected", location)
}

// handlePage accepts any origin: pages are the dApps themselves.
func (h *WSHost) handlePage(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "page closed")

	p := &page{id: uuid.NewString(), conn: conn}
	h.touchPage(p)
	h.log.Debugf("Page %s connected", p.id)

	h.readLoop(r.Context(), conn, p.id, func() { h.touchPage(p) })

	h.mtx.Lock()
	for i, other := range h.pages {
		if other == p {
			h.pages = append(h.pages[:i], h.pages[i+1:]...)
			break
		}
	}
	h.mtx.Unlock()
	h.log.Debugf("Page %s disconnected", p.id)
}

// touchPage marks p as the active tab.
func (h *WSHost) touchPage(p *page) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	for i, other := range h.pages {
		if other == p {
			h.pages = append(h.pages[:i], h.pages[i+1:]...)
			break
		}
	}
	h.pages = append(h.pages, p)
}

func (h *WSHost) readLoop(ctx context.Context, conn *websocket.Conn, source string, onMessage func()) {
	for {
		var req tprltypes.BackgroundRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				h.log.Debugf("Read from %s err: %v", source, err)
			}
			return
		}
		req.Source = source
		if onMessage != nil {
			onMessage()
		}

		router := h.currentRouter()
		if router == nil {
			h.log.Warnf("No router bound, request from %s dropped", source)
			continue
		}
		if err := router.Route(ctx, &req); err != nil {
			h.log.Warnf("Route request from %s err: %v", source, err)
		}
	}
}

// SurfaceLink is the URL a surface is opened at. The fragment never reaches the server, so the
// token stays in the surface.
func (h *WSHost) SurfaceLink(location string) string {
	return fmt.Sprintf("%s#/%s?token=%s", h.config.SurfaceURL, location, url.QueryEscape(h.config.SurfaceToken))
}

// OpenSurface is a no-op when a surface already listens at location. Otherwise the configured
// opener command is run with the surface link. The opener lives until it exits or the host stops.
func (h *WSHost) OpenSurface(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mtx.RLock()
	_, connected := h.surfaces[location]
	h.mtx.RUnlock()
	if connected {
		return nil
	}

	link := h.SurfaceLink(location)
	if h.config.OpenCommand == "" {
		h.log.Infof("Surface %s requested, open %s", location, link)
		return nil
	}

	cmd := exec.CommandContext(h.ctx, h.config.OpenCommand, link)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open surface %s: %w", location, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			h.log.Debugf("Surface opener %s for %s exited: %v", h.config.OpenCommand, location, err)
		}
	}()
	return nil
}

func (h *WSHost) write(ctx context.Context, conn *websocket.Conn, msg *tprltypes.BackgroundRequest) error {
	writeCtx, cancel := context.WithTimeout(ctx, h.config.WriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}

func (h *WSHost) SendToSurface(ctx context.Context, location string, msg *tprltypes.BackgroundRequest) error {
	h.mtx.RLock()
	conn, ok := h.surfaces[location]
	h.mtx.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSurfaceNotConnected, location)
	}
	return h.write(ctx, conn, msg)
}

func (h *WSHost) ActiveTab(ctx context.Context) (string, bool, error) {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	if len(h.pages) == 0 {
		return "", false, nil
	}
	return h.pages[len(h.pages)-1].id, true, nil
}

func (h *WSHost) SendToTab(ctx context.Context, tabID string, msg *tprltypes.BackgroundRequest) error {
	h.mtx.RLock()
	var conn *websocket.Conn
	for _, p := range h.pages {
		if p.id == tabID {
			conn = p.conn
			break
		}
	}
	h.mtx.RUnlock()
	if conn == nil {
		return fmt.Errorf("tab %s not connected", tabID)
	}
	return h.write(ctx, conn, msg)
}
