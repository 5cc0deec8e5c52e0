package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/fckfck97/cie-corpoindustrial/internal/auth/domain"
	billingdomain "github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	notifierdomain "github.com/fckfck97/cie-corpoindustrial/internal/notifier/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// detailResponse is the error envelope for every endpoint: a single
// user-facing message under "detail".
type detailResponse struct {
	Detail string `json:"detail"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, detail := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, detailResponse{Detail: detail})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, string) {
	var vErr *billingdomain.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, vErr.Detail
	}
	var ctxErr *authdomain.ContextError
	if errors.As(err, &ctxErr) {
		return http.StatusForbidden, ctxErr.Reason
	}

	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, authdomain.ErrInvalidToken):
		return http.StatusUnauthorized, "Credenciales no válidas."
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "Solo administrador."
	case errors.Is(err, authdomain.ErrUnauthorizedEmail):
		return http.StatusForbidden, "Correo no autorizado."
	case errors.Is(err, authdomain.ErrUserNotFound):
		return http.StatusNotFound, "Usuario no encontrado."
	case errors.Is(err, authdomain.ErrAccessBlocked):
		return http.StatusPaymentRequired,
			"Tu empresa tiene pagos pendientes. Acceso bloqueado temporalmente. Contacta al administrador."
	case errors.Is(err, authdomain.ErrInvalidOTP):
		return http.StatusBadRequest, "OTP inválido."
	case errors.Is(err, authdomain.ErrEmailDelivery):
		return http.StatusInternalServerError, "No fue posible enviar el código OTP."
	case errors.Is(err, billingdomain.ErrPaymentNotFound):
		return http.StatusNotFound, "Pago no encontrado."
	case errors.Is(err, billingdomain.ErrPaymentWindowLocked):
		return http.StatusBadRequest,
			"Este pago aún no está habilitado. Solo puedes registrar mes actual/anterior o meses liberados al cierre mensual."
	case errors.Is(err, billingdomain.ErrInvalidPaymentMethod):
		return http.StatusBadRequest, "Método de pago inválido."
	case errors.Is(err, billingdomain.ErrAdminSelfService):
		return http.StatusBadRequest, "Admin debe consultar el panel de empresas."
	case errors.Is(err, billingdomain.ErrNoEnterprise):
		return http.StatusNotFound, "No se encontró empresa asociada."
	case errors.Is(err, billingdomain.ErrInvalidEnterpriseID):
		return http.StatusBadRequest, "Parametro enterprise_id invalido."
	case errors.Is(err, billingdomain.ErrInvalidPeriod):
		return http.StatusBadRequest, "year/month deben ser numericos."
	case errors.Is(err, notifierdomain.ErrInvalidStage):
		return http.StatusBadRequest, "Parametro stage invalido. Usa un numero del 1 al 5."
	case errors.Is(err, notifierdomain.ErrStageOutOfRange):
		return http.StatusBadRequest, "Parametro stage fuera de rango. Usa un numero del 1 al 5."
	case errors.Is(err, notifierdomain.ErrInvalidEnterpriseID):
		return http.StatusBadRequest, "Parametro enterprise_id invalido."
	default:
		return http.StatusInternalServerError, "Error interno del servidor."
	}
}
