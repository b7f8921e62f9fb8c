package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/infra/metrics"
	"github.com/shelfmark/shelfmark/infra/requestid"
	"github.com/shelfmark/shelfmark/infra/tracing"
	"github.com/shelfmark/shelfmark/inventory/domain/item"
	"github.com/shelfmark/shelfmark/inventory/use_cases/adjust"
	"github.com/shelfmark/shelfmark/inventory/use_cases/archive"
	"github.com/shelfmark/shelfmark/inventory/use_cases/purge"
	"github.com/shelfmark/shelfmark/inventory/use_cases/query"
	"github.com/shelfmark/shelfmark/inventory/use_cases/register"
	"github.com/shelfmark/shelfmark/inventory/use_cases/update"
)

const serviceName = "inventory"

type RegisterItemRequest struct {
	InvID       string `json:"inv_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Copies      int    `json:"copies"`
}

type UpdateItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Copies      int    `json:"copies"`
}

type AdjustCopiesRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type DeleteManyRequest struct {
	InvIDs []string `json:"inv_ids" binding:"required"`
}

type ItemResponse struct {
	InvID       string    `json:"inv_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Copies      int       `json:"copies"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Handlers struct {
	register *register.Register
	query    *query.Query
	update   *update.Update
	archive  *archive.Archive
	adjust   *adjust.Adjust
	purge    *purge.Purge
	logger   *zap.Logger
}

func NewHandlers(reg *register.Register, q *query.Query, upd *update.Update, arch *archive.Archive, adj *adjust.Adjust, prg *purge.Purge, logger *zap.Logger) *Handlers {
	return &Handlers{register: reg, query: q, update: upd, archive: arch, adjust: adj, purge: prg, logger: logger}
}

// NewRouter wires the REST surface of the inventory directory.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(tracing.Middleware(serviceName))
	r.Use(metrics.Middleware(serviceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", metrics.Handler())

	r.POST("/items", h.registerItem)
	r.GET("/items", h.listItems)
	r.GET("/items/archived", h.listArchivedItems)
	r.GET("/items/:id", h.getItem)
	r.PUT("/items/:id", h.updateItem)
	r.DELETE("/items/:id", h.archiveItem)
	r.POST("/items/:id/adjust", h.adjustCopies)
	r.POST("/items/delete-many", h.deleteManyItems)
	r.DELETE("/items", h.deleteAllItems)
	return r
}

func (h *Handlers) registerItem(c *gin.Context) {
	var req RegisterItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.register.Register(c.Request.Context(), register.Input{
		InvID:       req.InvID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Copies:      req.Copies,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toItemResponse(&out.Item))
}

func (h *Handlers) listItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	out, err := h.query.List(c.Request.Context(), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	items := make([]ItemResponse, 0, len(out.Items))
	for i := range out.Items {
		items = append(items, toItemResponse(&out.Items[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"total": out.Total,
		"page":  out.Page,
		"limit": out.Limit,
	})
}

func (h *Handlers) listArchivedItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	out, err := h.query.ListArchived(c.Request.Context(), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	items := make([]ItemResponse, 0, len(out.Items))
	for i := range out.Items {
		items = append(items, toItemResponse(&out.Items[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"total": out.Total,
		"page":  out.Page,
		"limit": out.Limit,
	})
}

func (h *Handlers) getItem(c *gin.Context) {
	it, err := h.query.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(it))
}

func (h *Handlers) updateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.update.Update(c.Request.Context(), update.Input{
		InvID:       c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Copies:      req.Copies,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item updated"})
}

func (h *Handlers) archiveItem(c *gin.Context) {
	if err := h.archive.Archive(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item archived"})
}

func (h *Handlers) adjustCopies(c *gin.Context) {
	var req AdjustCopiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.adjust.Adjust(c.Request.Context(), adjust.Input{
		InvID: c.Param("id"),
		Delta: req.Delta,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inv_id": c.Param("id"), "copies": out.Copies})
}

func (h *Handlers) deleteManyItems(c *gin.Context) {
	var req DeleteManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deleted, err := h.purge.Many(c.Request.Context(), req.InvIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handlers) deleteAllItems(c *gin.Context) {
	deleted, err := h.purge.All(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, item.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, item.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, item.ErrAlreadyExists), errors.Is(err, item.ErrInsufficientStock):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", requestid.FromContext(c.Request.Context())),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func toItemResponse(it *item.Item) ItemResponse {
	return ItemResponse{
		InvID:       it.InvID,
		Name:        it.Name,
		Description: it.Description,
		Type:        it.Type,
		Copies:      it.Copies,
		Archived:    it.Archived,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}
