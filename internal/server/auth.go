package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
)

type otpRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type otpVerifyBody struct {
	Identifier string `json:"identifier" binding:"required"`
	OTP        string `json:"otp" binding:"required"`
}

func (s *Server) requestOTP(c *gin.Context) {
	var body otpRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, &billingdomain.ValidationError{Detail: "Debes enviar un correo valido."})
		return
	}

	result, err := s.authSvc.RequestOTP(c.Request.Context(), body.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) verifyOTP(c *gin.Context) {
	var body otpVerifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, &billingdomain.ValidationError{Detail: "Debes enviar identifier y otp."})
		return
	}

	resp, err := s.authSvc.VerifyOTP(c.Request.Context(), body.Identifier, body.OTP)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
