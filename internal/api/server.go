package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contenteditor/internal/clipboard"
	"contenteditor/internal/ecml"
	"contenteditor/internal/media"
	"contenteditor/internal/surface"
	"contenteditor/pkg/plugin"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// helpTimeout bounds how long a help request waits for the resource loader.
const helpTimeout = 5 * time.Second

// Server provides HTTP API endpoints for the content editor
type Server struct {
	session   *plugin.Session
	clipboard *clipboard.Clipboard
	media     *media.Registry
	gateway   *surface.Gateway
	logger    *zap.Logger
	echo      *echo.Echo
	addr      string
}

// Options wires the collaborators of the API server.
type Options struct {
	Session   *plugin.Session
	Clipboard *clipboard.Clipboard
	Media     *media.Registry
	Gateway   *surface.Gateway
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
	Port      int
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		session:   opts.Session,
		clipboard: opts.Clipboard,
		media:     opts.Media,
		gateway:   opts.Gateway,
		logger:    opts.Logger.Named("api"),
		addr:      fmt.Sprintf(":%d", opts.Port),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.Error("Handler panic", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.BodyLimit("8M"))

	e.GET("/", s.handleSitemap)
	e.GET("/health", s.handleHealth)

	api := e.Group("/api")
	api.GET("/types", s.handleListTypes)
	api.GET("/instances", s.handleListInstances)
	api.POST("/instances", s.handleCreateInstance)
	api.GET("/instances/:id", s.handleGetInstance)
	api.DELETE("/instances/:id", s.handleDeleteInstance)
	api.GET("/instances/:id/ecml", s.handleGetECML)
	api.PATCH("/instances/:id/config", s.handlePatchConfig)
	api.GET("/instances/:id/help", s.handleHelp)
	api.GET("/document", s.handleGetDocument)
	api.PUT("/document", s.handlePutDocument)
	api.POST("/clipboard/copy/:id", s.handleCopy)
	api.POST("/clipboard/paste", s.handlePaste)
	api.GET("/clipboard", s.handleGetClipboard)
	api.PUT("/clipboard", s.handlePutClipboard)

	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if s.gateway != nil {
		e.GET("/ws", s.gateway.Handle)
	}

	s.echo = e
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// TypeResponse describes a registered plugin type
type TypeResponse struct {
	ID          string            `json:"id"`
	Version     string            `json:"ver"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Order       int               `json:"order"`
	Menu        []plugin.MenuItem `json:"menu,omitempty"`
}

// InstanceResponse describes one plugin instance
type InstanceResponse struct {
	ID         string                      `json:"id"`
	Type       string                      `json:"type"`
	ParentID   string                      `json:"parentId,omitempty"`
	Children   []string                    `json:"children"`
	Properties map[string]interface{}      `json:"properties"`
	Attributes map[string]interface{}      `json:"attributes,omitempty"`
	Config     map[string]interface{}      `json:"config,omitempty"`
	Data       interface{}                 `json:"data,omitempty"`
	Params     []ecml.Param                `json:"params,omitempty"`
	Media      map[string]media.Descriptor `json:"media,omitempty"`
}

// CreateRequest asks for a new instance. Without a parent it is placed on
// the current stage.
type CreateRequest struct {
	Type     string        `json:"type"`
	ParentID string        `json:"parentId,omitempty"`
	Fragment ecml.Fragment `json:"fragment"`
}

// Document is the saved form of the whole session
type Document struct {
	Nodes []ecml.Node        `json:"nodes"`
	Media []media.Descriptor `json:"media"`
}

func errorJSON(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", plugin.ErrNotFound, id)
}

// statusFor maps core errors onto HTTP status codes.
func statusFor(err error) int {
	var missing *plugin.MissingParentError
	var dup *plugin.DuplicateIDError
	switch {
	case errors.Is(err, plugin.ErrUnknownType):
		return http.StatusBadRequest
	case errors.As(err, &missing):
		return http.StatusConflict
	case errors.As(err, &dup):
		return http.StatusConflict
	case errors.Is(err, clipboard.ErrEmpty):
		return http.StatusNotFound
	case errors.Is(err, plugin.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func summarize(inst *plugin.Instance, detail bool) InstanceResponse {
	resp := InstanceResponse{
		ID:         inst.ID(),
		Type:       inst.Type(),
		ParentID:   inst.ParentID(),
		Children:   inst.ChildIDs(),
		Properties: inst.Properties(),
	}
	if detail {
		resp.Attributes = inst.Attributes()
		resp.Config = inst.Config()
		resp.Data = inst.Data()
		resp.Params = inst.Params()
		resp.Media = inst.Media()
	}
	return resp
}

// do runs fn on the session loop with the request context.
func (s *Server) do(c echo.Context, fn func()) error {
	return s.session.Do(c.Request().Context(), fn)
}

// handleListTypes returns the registered plugin types
func (s *Server) handleListTypes(c echo.Context) error {
	types := s.session.Registry().List()
	resp := make([]TypeResponse, 0, len(types))
	for _, t := range types {
		resp = append(resp, TypeResponse{
			ID:          t.ID(),
			Version:     t.Manifest.Version,
			Name:        t.Manifest.Name,
			Description: t.Manifest.Description,
			Order:       t.Order,
			Menu:        t.Manifest.ResolvedMenu(),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// handleListInstances returns every live instance
func (s *Server) handleListInstances(c echo.Context) error {
	var resp []InstanceResponse
	err := s.do(c, func() {
		dir := s.session.Directory()
		resp = make([]InstanceResponse, 0, dir.Len())
		for _, id := range dir.IDs() {
			if inst, ok := dir.Get(id); ok {
				resp = append(resp, summarize(inst, false))
			}
		}
	})
	if err != nil {
		return errorJSON(c, http.StatusServiceUnavailable, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// handleGetInstance returns one instance with its full state
func (s *Server) handleGetInstance(c echo.Context) error {
	id := c.Param("id")
	var (
		resp  InstanceResponse
		found bool
	)
	err := s.do(c, func() {
		var inst *plugin.Instance
		if inst, found = s.session.Lookup(id); found {
			resp = summarize(inst, true)
		}
	})
	if err != nil {
		return errorJSON(c, http.StatusServiceUnavailable, err)
	}
	if !found {
		return errorJSON(c, http.StatusNotFound, notFound(id))
	}
	return c.JSON(http.StatusOK, resp)
}

// handleGetECML returns the persisted fragment of one instance
func (s *Server) handleGetECML(c echo.Context) error {
	id := c.Param("id")
	var (
		fragment ecml.Fragment
		opErr    error
	)
	err := s.do(c, func() {
		inst, ok := s.session.Lookup(id)
		if !ok {
			opErr = notFound(id)
			return
		}
		fragment, opErr = inst.ToECML()
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, fragment)
}

// handleCreateInstance instantiates a plugin type
func (s *Server) handleCreateInstance(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
	}
	if req.Type == "" {
		return errorJSON(c, http.StatusBadRequest, fmt.Errorf("type is required"))
	}

	var (
		resp  InstanceResponse
		opErr error
	)
	err := s.do(c, func() {
		var inst *plugin.Instance
		if req.ParentID == "" {
			inst, opErr = s.session.Create(req.Type, req.Fragment)
		} else {
			inst, opErr = s.session.Instantiate(req.Type, req.Fragment, req.ParentID)
		}
		if opErr == nil {
			resp = summarize(inst, true)
		}
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		s.logger.Warn("Create failed", zap.String("type", req.Type), zap.Error(err))
		return errorJSON(c, statusFor(err), err)
	}

	s.logger.Info("Instance created", zap.String("id", resp.ID), zap.String("type", resp.Type))
	return c.JSON(http.StatusCreated, resp)
}

// handleDeleteInstance removes an instance and its subtree
func (s *Server) handleDeleteInstance(c echo.Context) error {
	id := c.Param("id")
	var opErr error
	err := s.do(c, func() {
		opErr = s.session.Delete(id)
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handlePatchConfig applies config edits to an instance
func (s *Server) handlePatchConfig(c echo.Context) error {
	id := c.Param("id")
	var changes map[string]interface{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &changes); err != nil {
		return errorJSON(c, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
	}

	var (
		config map[string]interface{}
		found  bool
	)
	err := s.do(c, func() {
		var inst *plugin.Instance
		if inst, found = s.session.Lookup(id); !found {
			return
		}
		for k, v := range changes {
			inst.OnConfigChange(k, v)
		}
		config = inst.Config()
	})
	if err != nil {
		return errorJSON(c, http.StatusServiceUnavailable, err)
	}
	if !found {
		return errorJSON(c, http.StatusNotFound, notFound(id))
	}
	return c.JSON(http.StatusOK, config)
}

// handleHelp returns the help text of an instance's type
func (s *Server) handleHelp(c echo.Context) error {
	id := c.Param("id")
	result := make(chan string, 1)
	var found bool
	err := s.do(c, func() {
		var inst *plugin.Instance
		if inst, found = s.session.Lookup(id); found {
			inst.Help(func(text string) { result <- text })
		}
	})
	if err != nil {
		return errorJSON(c, http.StatusServiceUnavailable, err)
	}
	if !found {
		return errorJSON(c, http.StatusNotFound, notFound(id))
	}

	select {
	case text := <-result:
		return c.JSON(http.StatusOK, map[string]string{"help": text})
	case <-time.After(helpTimeout):
		return c.JSON(http.StatusOK, map[string]string{"help": plugin.HelpUnavailable})
	case <-c.Request().Context().Done():
		return c.Request().Context().Err()
	}
}

// handleGetDocument saves the whole session
func (s *Server) handleGetDocument(c echo.Context) error {
	var (
		nodes []ecml.Node
		opErr error
	)
	err := s.do(c, func() {
		nodes, opErr = s.session.Save()
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, Document{Nodes: nodes, Media: s.media.All()})
}

// handlePutDocument replaces the session with a document
func (s *Server) handlePutDocument(c echo.Context) error {
	var doc Document
	if err := c.Bind(&doc); err != nil {
		return errorJSON(c, http.StatusBadRequest, fmt.Errorf("invalid document: %w", err))
	}

	var (
		loadErr error
		count   int
	)
	err := s.do(c, func() {
		loadErr = LoadDocument(s.session, s.media, doc)
		count = s.session.Directory().Len()
	})
	if err != nil {
		return errorJSON(c, http.StatusServiceUnavailable, err)
	}

	resp := map[string]interface{}{"instances": count}
	if loadErr != nil {
		s.logger.Warn("Document loaded with errors", zap.Error(loadErr))
		resp["error"] = loadErr.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// LoadDocument resets the session, registers the document media and
// instantiates its nodes.
func LoadDocument(session *plugin.Session, registry *media.Registry, doc Document) error {
	session.Reset()
	registry.Clear()
	for _, d := range doc.Media {
		if err := registry.Add(d); err != nil {
			return fmt.Errorf("failed to register media %s: %w", d.ID, err)
		}
	}
	return session.Load(doc.Nodes, "")
}

// handleCopy puts an instance subtree on the clipboard
func (s *Server) handleCopy(c echo.Context) error {
	id := c.Param("id")
	var opErr error
	err := s.do(c, func() {
		opErr = s.clipboard.Copy(s.session, id)
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handlePaste instantiates the clipboard on the current stage
func (s *Server) handlePaste(c echo.Context) error {
	var (
		resp  InstanceResponse
		opErr error
	)
	err := s.do(c, func() {
		var inst *plugin.Instance
		if inst, opErr = s.clipboard.Paste(s.session); opErr == nil {
			resp = summarize(inst, false)
		}
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// handleGetClipboard returns the raw msgpack clipboard
func (s *Server) handleGetClipboard(c echo.Context) error {
	if s.clipboard.Empty() {
		return errorJSON(c, http.StatusNotFound, clipboard.ErrEmpty)
	}
	return c.Blob(http.StatusOK, "application/msgpack", s.clipboard.Bytes())
}

// handlePutClipboard replaces the clipboard with msgpack from another editor
func (s *Server) handlePutClipboard(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	if err := s.clipboard.SetBytes(body); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Endpoint represents an API endpoint with its documentation
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{Path: "/", Method: "GET", Description: "This sitemap - lists all available API endpoints"},
	{Path: "/health", Method: "GET", Description: "Health check endpoint - returns {\"status\": \"ok\"}"},
	{Path: "/api/types", Method: "GET", Description: "Registered plugin types with their menus"},
	{Path: "/api/instances", Method: "GET", Description: "All live plugin instances"},
	{Path: "/api/instances", Method: "POST", Description: "Create an instance: {type, parentId?, fragment}"},
	{Path: "/api/instances/:id", Method: "GET", Description: "One instance with attributes, config, data, params and media"},
	{Path: "/api/instances/:id", Method: "DELETE", Description: "Remove an instance and its children"},
	{Path: "/api/instances/:id/ecml", Method: "GET", Description: "Persisted fragment of an instance"},
	{Path: "/api/instances/:id/config", Method: "PATCH", Description: "Change config properties of an instance"},
	{Path: "/api/instances/:id/help", Method: "GET", Description: "Help text of the instance's plugin type"},
	{Path: "/api/document", Method: "GET", Description: "Save the document: {nodes, media}"},
	{Path: "/api/document", Method: "PUT", Description: "Replace the document"},
	{Path: "/api/clipboard/copy/:id", Method: "POST", Description: "Copy an instance subtree"},
	{Path: "/api/clipboard/paste", Method: "POST", Description: "Paste the clipboard onto the current stage"},
	{Path: "/api/clipboard", Method: "GET", Description: "Raw clipboard (application/msgpack)"},
	{Path: "/api/clipboard", Method: "PUT", Description: "Replace the clipboard (application/msgpack)"},
	{Path: "/metrics", Method: "GET", Description: "Prometheus metrics"},
	{Path: "/ws", Method: "GET", Description: "Websocket for a browser canvas"},
}

// handleSitemap returns a list of all available API endpoints
func (s *Server) handleSitemap(c echo.Context) error {
	preferHTML := strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/html")

	// 404 status code for automation compatibility, with a helpful body
	if preferHTML {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html>
<html>
<head>
    <title>Content Editor API</title>
    <style>
        body { font-family: monospace; margin: 40px; background: #1e1e1e; color: #d4d4d4; }
        h1 { color: #4ec9b0; }
        .endpoint { background: #2d2d2d; padding: 15px; margin: 10px 0; border-left: 3px solid #007acc; }
        .method { color: #4ec9b0; font-weight: bold; }
        .path { color: #ce9178; }
        .description { color: #9cdcfe; margin-top: 5px; }
    </style>
</head>
<body>
    <h1>Content Editor API</h1>
`)
		for _, ep := range endpoints {
			fmt.Fprintf(&b, `    <div class="endpoint">
        <div><span class="method">%s</span> <span class="path">%s</span></div>
        <div class="description">%s</div>
    </div>
`, ep.Method, ep.Path, ep.Description)
		}
		b.WriteString("</body>\n</html>\n")
		return c.HTML(http.StatusNotFound, b.String())
	}

	var b strings.Builder
	b.WriteString("Content Editor API\n")
	b.WriteString("==================\n\n")
	b.WriteString("Available endpoints:\n\n")
	for _, ep := range endpoints {
		fmt.Fprintf(&b, "  %-7s %-28s %s\n", ep.Method, ep.Path, ep.Description)
	}
	b.WriteString("\nExamples:\n\n")
	b.WriteString("  Save the document:\n")
	b.WriteString("    curl http://localhost:8080/api/document | jq\n")
	return c.String(http.StatusNotFound, b.String())
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.addr))

	go func() {
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
