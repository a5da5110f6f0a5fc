package budget

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentway/dentway/internal/platform/auth"
	"github.com/dentway/dentway/pkg/pagination"
)

type Handler struct {
	svc       *Service
	allocator *Allocator
}

func NewHandler(svc *Service, allocator *Allocator) *Handler {
	return &Handler{svc: svc, allocator: allocator}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – any clinical or billing role
	readGroup := api.Group("", auth.RequireRole("admin", "dentist", "receptionist", "billing"))
	readGroup.GET("/budgets", h.List)
	readGroup.GET("/budgets/:id", h.Get)

	// Write endpoints – admin, dentist
	writeGroup := api.Group("", auth.RequireRole("admin", "dentist"))
	writeGroup.POST("/budgets", h.Create)
	writeGroup.PUT("/budgets/:id", h.UpdateMeta)
	writeGroup.DELETE("/budgets/:id", h.Delete)
	writeGroup.POST("/budgets/:id/items", h.UpsertItem)
	writeGroup.DELETE("/budgets/:id/items/:idx", h.RemoveItem)
	writeGroup.POST("/budgets/:id/items/:idx/toggle-approval", h.ToggleApproval)

	// Payment endpoints – admin, dentist, billing
	payGroup := api.Group("", auth.RequireRole("admin", "dentist", "billing"))
	payGroup.POST("/budgets/:id/items/:idx/pay", h.PayItem)
	payGroup.POST("/budgets/:id/pay", h.PayItems)
}

func (h *Handler) Create(c echo.Context) error {
	var b Budget
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &b); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type updateMetaRequest struct {
	Date         string   `json:"date"`
	Location     string   `json:"location"`
	Notes        string   `json:"notes"`
	LocationRate *float64 `json:"location_rate"`
}

func (h *Handler) UpdateMeta(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateMetaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.UpdateMeta(c.Request().Context(), id, req.Date, req.Location, req.Notes, req.LocationRate)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpsertItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var item TreatmentItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.UpsertItem(c.Request().Context(), id, item)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) RemoveItem(c echo.Context) error {
	id, idx, err := itemRef(c)
	if err != nil {
		return err
	}
	b, err := h.svc.RemoveItem(c.Request().Context(), id, idx)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ToggleApproval(c echo.Context) error {
	id, idx, err := itemRef(c)
	if err != nil {
		return err
	}
	b, err := h.svc.ToggleItemApproval(c.Request().Context(), id, idx)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) PayItem(c echo.Context) error {
	id, idx, err := itemRef(c)
	if err != nil {
		return err
	}
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.allocator.PayItem(c.Request().Context(), id, idx, req); err != nil {
		return domainError(err)
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, b)
}

type batchPaymentRequest struct {
	PaymentRequest
	ItemIndexes []int `json:"item_indexes"`
}

func (h *Handler) PayItems(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req batchPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.allocator.PayItems(c.Request().Context(), id, req.ItemIndexes, req.PaymentRequest); err != nil {
		return domainError(err)
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func itemRef(c echo.Context) (uuid.UUID, int, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil {
		return uuid.Nil, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid item index")
	}
	return id, idx, nil
}

func domainError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
