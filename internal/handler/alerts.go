package handler

import (
	"errors"
	"net/http"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/apierror"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/dto"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AlertsHandler struct{ svc service.AlertService }

func NewAlertsHandler(svc service.AlertService) *AlertsHandler {
	return &AlertsHandler{svc: svc}
}

func (h *AlertsHandler) List(c *gin.Context) {
	status := c.DefaultQuery("status", "open")
	resp, err := h.svc.List(c.Request.Context(), status)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, apierror.New("Valore di status non valido"))
			return
		}
		c.JSON(http.StatusInternalServerError, apierror.New("Errore durante il recupero degli avvisi"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resolve closes an open alert. Admin only; resolving twice is a conflict.
func (h *AlertsHandler) Resolve(c *gin.Context) {
	actor, ok := actorFromClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticazione richiesta"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID non valido"))
		return
	}

	resp, err := h.svc.Resolve(c.Request.Context(), actor, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoleRestriction):
			c.JSON(http.StatusForbidden, apierror.New("Il ruolo non consente questa operazione"))
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, apierror.New("Avviso non trovato"))
		case errors.Is(err, service.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, apierror.New("Avviso gia risolto"))
		default:
			c.JSON(http.StatusInternalServerError, apierror.New("Errore durante la risoluzione dell'avviso"))
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateManual opens an alert by hand (admin only). At most one open alert
// per product, same as the automatic path.
func (h *AlertsHandler) CreateManual(c *gin.Context) {
	actor, ok := actorFromClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticazione richiesta"))
		return
	}

	var req dto.CreateManualAlertRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.CreateManual(c.Request.Context(), actor, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoleRestriction):
			c.JSON(http.StatusForbidden, apierror.New("Il ruolo non consente questa operazione"))
		case errors.Is(err, service.ErrUnknownProduct):
			c.JSON(http.StatusNotFound, apierror.New("Prodotto non trovato"))
		case errors.Is(err, service.ErrAlertAlreadyOpen):
			c.JSON(http.StatusConflict, apierror.New("Esiste gia un avviso aperto per questo prodotto"))
		case errors.Is(err, service.ErrContention):
			c.JSON(http.StatusConflict, apierror.New("Movimento concorrente in corso, riprova"))
		default:
			c.JSON(http.StatusInternalServerError, apierror.New("Errore durante la creazione dell'avviso"))
		}
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// MarkAllSeen marks every open alert as seen by the calling staff member.
// Idempotent: re-running marks nothing new.
func (h *AlertsHandler) MarkAllSeen(c *gin.Context) {
	actor, ok := actorFromClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticazione richiesta"))
		return
	}
	resp, err := h.svc.MarkAllSeen(c.Request.Context(), actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Errore durante l'aggiornamento degli avvisi"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AlertsHandler) UnseenCount(c *gin.Context) {
	actor, ok := actorFromClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticazione richiesta"))
		return
	}
	resp, err := h.svc.UnseenCount(c.Request.Context(), actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Errore durante il conteggio degli avvisi"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
