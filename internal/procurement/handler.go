package procurement

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/procureflow/procureflow/internal/platform/httpx"
)

// Handler exposes the procurement workflow as a JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	dashboard *Aggregator
}

// NewHandler builds the procurement HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, dashboard *Aggregator) *Handler {
	return &Handler{logger: logger, service: service, dashboard: dashboard}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/requisitions", func(r chi.Router) {
		r.Post("/", h.createRequisition)
		r.Get("/pending", h.pendingRequisitions)
		r.Get("/approved", h.approvedRequisitionIDs)
		r.Get("/{id}", h.requisitionDetails)
		r.Post("/{id}/approve", h.approveRequisition)
		r.Post("/{id}/reject", h.rejectRequisition)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/pending", h.pendingOrders)
		r.Get("/{id}", h.orderDetails)
		r.Post("/{id}/decision", h.decideOrder)
	})
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.requestPayment)
		r.Post("/{id}/decision", h.decidePayment)
		r.Post("/{id}/post", h.postPayment)
	})
	r.Route("/vendors", func(r chi.Router) {
		r.Post("/", h.createVendor)
		r.Get("/", h.listVendors)
	})
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", h.summary)
		r.Get("/requisitions", h.requisitionOverview)
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) invalidate(r *http.Request) {
	if h.dashboard == nil {
		return
	}
	if err := h.dashboard.Invalidate(r.Context()); err != nil {
		h.logger.Warn("dashboard invalidate", slog.Any("error", err))
	}
}

func (h *Handler) createRequisition(w http.ResponseWriter, r *http.Request) {
	var input CreateRequisitionInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	pr, err := h.service.CreateRequisition(r.Context(), input)
	if err != nil {
		h.respondError(w, r, "create requisition", err)
		return
	}
	h.invalidate(r)
	httpx.JSON(w, http.StatusCreated, pr)
}

func (h *Handler) pendingRequisitions(w http.ResponseWriter, r *http.Request) {
	prs, err := h.service.PendingRequisitions(r.Context())
	if err != nil {
		h.respondError(w, r, "pending requisitions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, prs)
}

func (h *Handler) approvedRequisitionIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.ApprovedRequisitionIDs(r.Context())
	if err != nil {
		h.respondError(w, r, "approved requisitions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ids)
}

func (h *Handler) requisitionDetails(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.RequisitionDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, "requisition details", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

type decisionRequest struct {
	Remarks string `json:"remarks"`
}

func (h *Handler) approveRequisition(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	_ = httpx.DecodeJSON(w, r, &req)
	if err := h.service.ApproveRequisition(r.Context(), chi.URLParam(r, "id"), req.Remarks); err != nil {
		h.respondError(w, r, "approve requisition", err)
		return
	}
	h.invalidate(r)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(PRStatusApproved)})
}

func (h *Handler) rejectRequisition(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	_ = httpx.DecodeJSON(w, r, &req)
	if err := h.service.RejectRequisition(r.Context(), chi.URLParam(r, "id"), req.Remarks); err != nil {
		h.respondError(w, r, "reject requisition", err)
		return
	}
	h.invalidate(r)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(PRStatusRejected)})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var input CreatePurchaseOrderInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	po, err := h.service.CreatePurchaseOrder(r.Context(), input)
	if err != nil {
		h.respondError(w, r, "create order", err)
		return
	}
	h.invalidate(r)
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) pendingOrders(w http.ResponseWriter, r *http.Request) {
	pos, err := h.service.PendingPurchaseOrders(r.Context())
	if err != nil {
		h.respondError(w, r, "pending orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pos)
}

func (h *Handler) orderDetails(w http.ResponseWriter, r *http.Request) {
	poID := chi.URLParam(r, "id")
	po, err := h.service.GetPurchaseOrder(r.Context(), poID)
	if err != nil {
		h.respondError(w, r, "order details", err)
		return
	}
	lines, err := h.service.PurchaseOrderLines(r.Context(), poID)
	if err != nil {
		h.respondError(w, r, "order details", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": po, "lines": lines})
}

type orderDecisionRequest struct {
	Action  DecisionAction `json:"action"`
	Remarks string         `json:"remarks"`
}

func (h *Handler) decideOrder(w http.ResponseWriter, r *http.Request) {
	var req orderDecisionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.Action != DecisionApproved && req.Action != DecisionRejected {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "action must be Approved or Rejected")
		return
	}
	if err := h.service.DecidePurchaseOrder(r.Context(), chi.URLParam(r, "id"), req.Action, req.Remarks); err != nil {
		h.respondError(w, r, "decide order", err)
		return
	}
	h.invalidate(r)
	httpx.JSON(w, http.StatusOK, map[string]string{"action": string(req.Action)})
}

func (h *Handler) requestPayment(w http.ResponseWriter, r *http.Request) {
	var input RequestPaymentInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	payment, err := h.service.RequestPayment(r.Context(), input)
	if err != nil {
		h.respondError(w, r, "request payment", err)
		return
	}
	h.invalidate(r)
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) decidePayment(w http.ResponseWriter, r *http.Request) {
	var req orderDecisionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.Action != DecisionApproved && req.Action != DecisionRejected {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "action must be Approved or Rejected")
		return
	}
	if err := h.service.DecidePayment(r.Context(), chi.URLParam(r, "id"), req.Action, req.Remarks); err != nil {
		h.respondError(w, r, "decide payment", err)
		return
	}
	h.invalidate(r)
	httpx.JSON(w, http.StatusOK, map[string]string{"action": string(req.Action)})
}

type postPaymentRequest struct {
	PostedDate string `json:"posted_date"`
	UTR        string `json:"utr"`
	Remarks    string `json:"remarks"`
}

func (h *Handler) postPayment(w http.ResponseWriter, r *http.Request) {
	var req postPaymentRequest
	_ = httpx.DecodeJSON(w, r, &req)
	var postedDate time.Time
	if req.PostedDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PostedDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "posted_date must be YYYY-MM-DD")
			return
		}
		postedDate = parsed
	}
	if err := h.service.PostPayment(r.Context(), chi.URLParam(r, "id"), postedDate, req.UTR, req.Remarks); err != nil {
		h.respondError(w, r, "post payment", err)
		return
	}
	h.invalidate(r)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(PaymentStatusPosted)})
}

func (h *Handler) createVendor(w http.ResponseWriter, r *http.Request) {
	var input VendorInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	vendor, err := h.service.CreateVendor(r.Context(), input)
	if err != nil {
		h.respondError(w, r, "create vendor", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, vendor)
}

func (h *Handler) listVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.service.ActiveVendors(r.Context())
	if err != nil {
		h.respondError(w, r, "list vendors", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vendors)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.Summary(r.Context())
	if err != nil {
		h.respondError(w, r, "dashboard summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) requisitionOverview(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.RequisitionOverview(r.Context())
	if err != nil {
		h.respondError(w, r, "requisition overview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
