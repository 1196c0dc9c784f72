// Package httpapi exposes the record service over HTTP with JSON bodies.
//
// Error mapping: ValidationError => 400, ErrNotFound => 404, anything
// else => 500 with a generic message (detail is logged, never exposed).
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/unkn0wn-root/recordsvc"
)

type Options struct {
	// Required
	Service *recordsvc.Service

	Logger recordsvc.Logger // if nil, NopLogger is used
}

type api struct {
	svc *recordsvc.Service
	log recordsvc.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(opts Options) *gin.Engine {
	a := &api{svc: opts.Service, log: opts.Logger}
	if a.log == nil {
		a.log = recordsvc.NopLogger{}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/health", a.health)
	r.GET("/records", a.list)
	r.GET("/records/stats", a.stats)
	r.GET("/records/:id", a.get)
	r.POST("/records", a.create)
	r.PUT("/records/:id", a.update)
	return r
}

func (a *api) health(c *gin.Context) {
	db := "connected"
	if err := a.svc.Ping(c.Request.Context()); err != nil {
		db = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "records",
		"database": db,
	})
}

func (a *api) list(c *gin.Context) {
	recs, source, err := a.svc.List(c.Request.Context())
	if err != nil {
		a.internal(c, "list records failed", err)
		return
	}
	if recs == nil {
		recs = []recordsvc.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"data": recs, "source": source})
}

func (a *api) get(c *gin.Context) {
	id, ok := a.recordID(c)
	if !ok {
		return
	}
	rec, source, err := a.svc.Get(c.Request.Context(), id)
	if errors.Is(err, recordsvc.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		a.internal(c, "get record failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec, "source": source})
}

type createRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (a *api) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rec, err := a.svc.Create(c.Request.Context(), req.Name, req.Phone)
	var verr *recordsvc.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and phone are required"})
		return
	}
	if err != nil {
		a.internal(c, "create record failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": rec})
}

type updateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (a *api) update(c *gin.Context) {
	id, ok := a.recordID(c)
	if !ok {
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rec, err := a.svc.Update(c.Request.Context(), id, req.Name, req.Phone)
	if errors.Is(err, recordsvc.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		a.internal(c, "update record failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

func (a *api) stats(c *gin.Context) {
	st, err := a.svc.Stats(c.Request.Context())
	if err != nil {
		a.internal(c, "record stats failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st})
}

// recordID parses the :id path param. A non-numeric id cannot name any
// record, so it reports 404 rather than 400.
func (a *api) recordID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return 0, false
	}
	return id, true
}

func (a *api) internal(c *gin.Context, msg string, err error) {
	a.log.Error(msg, recordsvc.Fields{"err": err, "path": c.FullPath()})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
