package handler

import (
	"errors"
	"net/http"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/apierror"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/dto"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/middleware"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MovementsHandler struct{ svc service.LedgerService }

func NewMovementsHandler(svc service.LedgerService) *MovementsHandler {
	return &MovementsHandler{svc: svc}
}

// actorFromClaims builds the acting identity from the validated JWT.
func actorFromClaims(c *gin.Context) (service.Actor, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Actor{}, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: claims.Role}, true
}

// Record godoc
// @Summary Registra un movimento di magazzino
// @Tags movements
// @Accept json
// @Produce json
// @Param body body dto.RecordMovementRequest true "Movimento"
// @Success 201 {object} dto.MovementResult
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/movements [post]
func (h *MovementsHandler) Record(c *gin.Context) {
	actor, ok := actorFromClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticazione richiesta"))
		return
	}

	var req dto.RecordMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.RecordMovement(c.Request.Context(), actor, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoleRestriction):
			c.JSON(http.StatusForbidden, apierror.New("Il ruolo non consente questa operazione"))
		case errors.Is(err, service.ErrInvalidMovement):
			c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
		case errors.Is(err, service.ErrUnknownProduct):
			c.JSON(http.StatusNotFound, apierror.New("Prodotto non trovato"))
		case errors.Is(err, service.ErrContention):
			c.JSON(http.StatusConflict, apierror.New("Movimento concorrente in corso, riprova"))
		default:
			c.JSON(http.StatusInternalServerError, apierror.New("Errore durante la registrazione del movimento"))
		}
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *MovementsHandler) List(c *gin.Context) {
	var filter dto.MovementFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.ListMovements(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Errore durante il recupero dei movimenti"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
