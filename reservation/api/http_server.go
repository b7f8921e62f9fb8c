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
	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/use_cases/cancel"
	"github.com/shelfmark/shelfmark/reservation/use_cases/create"
	"github.com/shelfmark/shelfmark/reservation/use_cases/query"
	"github.com/shelfmark/shelfmark/reservation/use_cases/update_many"
	"github.com/shelfmark/shelfmark/reservation/use_cases/update_status"
)

const serviceName = "reservation"

type CreateReservationRequest struct {
	User            string `json:"user" binding:"required"`
	UserEmail       string `json:"user_email" binding:"required"`
	InvID           string `json:"inv_id" binding:"required"`
	CopiesRequested int    `json:"copies_requested" binding:"required"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

type UpdateManyRequest struct {
	ReservationIDs []string `json:"reservation_ids" binding:"required"`
	Status         string   `json:"status" binding:"required"`
	Comment        string   `json:"comment"`
}

type ReservationResponse struct {
	ReservationID  string    `json:"reservation_id"`
	User           string    `json:"user"`
	UserEmail      string    `json:"user_email"`
	InvID          string    `json:"inv_id"`
	ItemName       string    `json:"item_name"`
	Status         string    `json:"status"`
	StatusComment  string    `json:"status_comment"`
	CopiesReserved int       `json:"copies_reserved"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type Handlers struct {
	create       *create.Create
	updateStatus *update_status.UpdateStatus
	updateMany   *update_many.UpdateMany
	cancel       *cancel.Cancel
	query        *query.Query
	logger       *zap.Logger
}

func NewHandlers(cr *create.Create, us *update_status.UpdateStatus, um *update_many.UpdateMany, ca *cancel.Cancel, q *query.Query, logger *zap.Logger) *Handlers {
	return &Handlers{create: cr, updateStatus: us, updateMany: um, cancel: ca, query: q, logger: logger}
}

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

	r.POST("/reservations", h.createReservation)
	r.GET("/reservations", h.listReservations)
	r.GET("/reservations/:id", h.getReservation)
	r.PUT("/reservations/:id/status", h.updateReservationStatus)
	r.PUT("/reservations/status", h.updateManyReservations)
	r.DELETE("/reservations/:id", h.cancelReservation)
	r.DELETE("/reservations", h.purgeReservations)
	r.GET("/quotas/:user", h.getQuota)
	return r
}

func (h *Handlers) createReservation(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.create.Create(c.Request.Context(), create.Input{
		User:            req.User,
		UserEmail:       req.UserEmail,
		InvID:           req.InvID,
		CopiesRequested: req.CopiesRequested,
		IdempotencyKey:  c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"reservation_id": out.ReservationID,
		"quota_used":     out.QuotaUsed,
		"expires_at":     out.ExpiresAt,
	})
}

func (h *Handlers) getReservation(c *gin.Context) {
	res, err := h.query.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *Handlers) listReservations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	out, err := h.query.List(c.Request.Context(), c.Query("user"), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	reservations := make([]ReservationResponse, 0, len(out.Reservations))
	for i := range out.Reservations {
		reservations = append(reservations, toReservationResponse(&out.Reservations[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  reservations,
		"total": out.Total,
		"page":  out.Page,
		"limit": out.Limit,
	})
}

func (h *Handlers) updateReservationStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.updateStatus.Update(c.Request.Context(), update_status.Input{
		ReservationID: c.Param("id"),
		NewStatus:     reservation.Status(req.Status),
		Comment:       req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reservation updated"})
}

func (h *Handlers) updateManyReservations(c *gin.Context) {
	var req UpdateManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.updateMany.Update(c.Request.Context(), update_many.Input{
		ReservationIDs: req.ReservationIDs,
		NewStatus:      reservation.Status(req.Status),
		Comment:        req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modified": out.Modified})
}

func (h *Handlers) cancelReservation(c *gin.Context) {
	if err := h.cancel.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reservation cancelled"})
}

func (h *Handlers) purgeReservations(c *gin.Context) {
	deleted, err := h.cancel.PurgeAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handlers) getQuota(c *gin.Context) {
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(reservation.MonthKey(time.Now()))))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be a YYYYMM integer"})
		return
	}
	q, err := h.query.Quota(c.Request.Context(), c.Param("user"), month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":                q.User,
		"month":               q.Month,
		"reservation_count":   q.ReservationCount,
		"reserved_item_names": q.ReservedItemNames,
	})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, reservation.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, reservation.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, reservation.ErrConflict),
		errors.Is(err, reservation.ErrQuotaExceeded),
		errors.Is(err, reservation.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, reservation.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", requestid.FromContext(c.Request.Context())),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ReservationID:  r.ReservationID,
		User:           r.User,
		UserEmail:      r.UserEmail,
		InvID:          r.InvID,
		ItemName:       r.ItemName,
		Status:         string(r.Status),
		StatusComment:  r.StatusComment,
		CopiesReserved: r.CopiesReserved,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
	}
}
