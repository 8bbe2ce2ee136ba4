// Package server exposes the orchestrator over HTTP: a JSON REST API for
// lifecycle operations and a websocket stream for domain events.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/craftd/craftd/internal/instance"
	"github.com/craftd/craftd/internal/metrics"
	"github.com/craftd/craftd/internal/orchestrator"
)

// Router provides embeddable HTTP handlers for managing server instances.
//
//	POST   {basePath}/servers              body: CreateRequest
//	GET    {basePath}/servers
//	GET    {basePath}/servers/:id
//	PATCH  {basePath}/servers/:id          body: UpdateRequest fields
//	DELETE {basePath}/servers/:id
//	POST   {basePath}/servers/:id/start
//	POST   {basePath}/servers/:id/stop
//	POST   {basePath}/servers/:id/command  body: {"command": "..."}
//	GET    {basePath}/events               websocket event stream
type Router struct {
	mgr      *orchestrator.Manager
	basePath string
	hub      *hub
}

// NewRouter constructs a Router with a configurable basePath and starts the
// event fan-out hub.
func NewRouter(mgr *orchestrator.Manager, basePath string) *Router {
	r := &Router{mgr: mgr, basePath: sanitizeBase(basePath), hub: newHub()}
	r.hub.attach(mgr.Bus())
	return r
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/servers", r.handleCreate)
	group.GET("/servers", r.handleList)
	group.GET("/servers/:id", r.handleGet)
	group.PATCH("/servers/:id", r.handleUpdate)
	group.DELETE("/servers/:id", r.handleDelete)
	group.POST("/servers/:id/start", r.handleStart)
	group.POST("/servers/:id/stop", r.handleStop)
	group.POST("/servers/:id/command", r.handleCommand)
	group.GET("/events", r.handleEvents)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, mgr *orchestrator.Manager) (*http.Server, error) {
	r := NewRouter(mgr, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

type errorResp struct {
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleCreate(c *gin.Context) {
	var req instance.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	// Names become directory names; reject traversal before the
	// orchestrator touches the disk.
	if req.Name != "" && !isSafeName(req.Name) {
		c.JSON(http.StatusBadRequest, errorResp{
			Kind:  string(instance.KindInvalidName),
			Error: "invalid name: allowed [A-Za-z0-9 ._-] and no '..' or path separators",
		})
		return
	}
	inst, err := r.mgr.Create(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inst)
}

func (r *Router) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, r.mgr.All())
}

func (r *Router) handleGet(c *gin.Context) {
	inst, err := r.mgr.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (r *Router) handleUpdate(c *gin.Context) {
	var req instance.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	req.ID = c.Param("id")
	if req.Name != nil && !isSafeName(*req.Name) {
		c.JSON(http.StatusBadRequest, errorResp{
			Kind:  string(instance.KindInvalidName),
			Error: "invalid name: allowed [A-Za-z0-9 ._-] and no '..' or path separators",
		})
		return
	}
	inst, err := r.mgr.Update(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (r *Router) handleDelete(c *gin.Context) {
	if err := r.mgr.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStart(c *gin.Context) {
	if err := r.mgr.Start(context.Background(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStop(c *gin.Context) {
	if err := r.mgr.Stop(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

type commandReq struct {
	Command string `json:"command"`
}

func (r *Router) handleCommand(c *gin.Context) {
	var req commandReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.Command == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "command required"})
		return
	}
	if err := r.mgr.SendCommand(c.Param("id"), req.Command); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

// writeError maps domain error kinds to HTTP status codes; the message is
// passed through verbatim.
func writeError(c *gin.Context, err error) {
	kind := instance.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case instance.KindInvalidName, instance.KindJarNotFound, instance.KindJavaNotFound:
		status = http.StatusBadRequest
	case instance.KindNotFound:
		status = http.StatusNotFound
	case instance.KindDuplicateName, instance.KindInvalidState:
		status = http.StatusConflict
	case instance.KindCommandFailed, instance.KindSpawnFailed:
		status = http.StatusBadGateway
	}
	c.JSON(status, errorResp{Kind: string(kind), Error: err.Error()})
}
