package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	notifierdomain "github.com/fckfck97/cie-corpoindustrial/internal/notifier/domain"
	"go.uber.org/zap"
)

func (s *Server) dashboard(c *gin.Context) {
	resp, err := s.billingSvc.Dashboard(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type generateRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		AbortWithError(c, &billingdomain.ValidationError{Detail: "year/month deben ser numericos."})
		return
	}

	resp, err := s.billingSvc.Generate(c.Request.Context(), billingdomain.GenerateRequest{
		Year:  req.Year,
		Month: req.Month,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) activate(c *gin.Context) {
	authorized, authSource := s.authorizeOperator(c)
	if !authorized {
		c.JSON(http.StatusForbidden, detailResponse{Detail: "No autorizado para activar mensualidades."})
		return
	}

	resp, err := s.billingSvc.Activate(c.Request.Context(), billingdomain.ActivateRequest{
		Mode:         requestParam(c, "mode"),
		Year:         requestParam(c, "year"),
		Month:        requestParam(c, "month"),
		EnterpriseID: requestParam(c, "enterprise_id"),
		DryRun:       parseBoolValue(requestParam(c, "dry_run")),
		AuthSource:   authSource,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.IncActivation(resp.Mode, resp.DryRun)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) runDelinquencyNotifications(c *gin.Context) {
	authorized, authSource := s.authorizeOperator(c)
	if !authorized {
		c.JSON(http.StatusForbidden, detailResponse{Detail: "No autorizado para ejecutar notificaciones de mora."})
		return
	}

	resp, err := s.notifierSvc.Run(c.Request.Context(), notifierdomain.RunRequest{
		DryRun:       parseBoolValue(requestParam(c, "dry_run")),
		EnterpriseID: requestParam(c, "enterprise_id"),
		Stage:        requestParam(c, "stage"),
		AuthSource:   authSource,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) markPaid(c *gin.Context) {
	account := currentAccount(c)
	paymentID := c.Param("payment_id")

	proofPath, err := s.savePaymentProof(c, paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payment, err := s.billingSvc.MarkPaid(c.Request.Context(), billingdomain.MarkPaidRequest{
		PaymentID:        paymentID,
		PaymentMethod:    c.PostForm("payment_method"),
		PaidAmount:       c.PostForm("paid_amount"),
		PaymentReference: c.PostForm("payment_reference"),
		Notes:            c.PostForm("notes"),
		ProofPath:        proofPath,
		ReportedBy:       account.ID,
	})
	if err != nil {
		// A rejected request must not leave the uploaded receipt behind.
		if proofPath != "" {
			if rmErr := os.Remove(proofPath); rmErr != nil {
				s.log.Warn("payment proof cleanup failed",
					zap.String("path", proofPath), zap.Error(rmErr))
			}
		}
		AbortWithError(c, err)
		return
	}

	s.metrics.IncPaymentMarkedPaid(payment.PaymentMethod)
	c.JSON(http.StatusOK, gin.H{
		"detail":  "Pago marcado como pagado.",
		"payment": payment,
	})
}

// savePaymentProof stores the uploaded receipt under the configured proof
// directory. A missing file is not an error; the upload is optional.
func (s *Server) savePaymentProof(c *gin.Context, paymentID string) (string, error) {
	file, err := c.FormFile("payment_proof")
	if err != nil {
		return "", nil
	}

	dir := s.cfg.PaymentProofDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := s.genID.Generate().String() + "_" + paymentID + filepath.Ext(file.Filename)
	dst := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", err
	}

	s.log.Info("payment proof stored", zap.String("payment_id", paymentID), zap.String("path", dst))
	return dst, nil
}

func (s *Server) report(c *gin.Context) {
	resp, err := s.billingSvc.Report(c.Request.Context(), billingdomain.ReportRequest{
		EnterpriseID: c.Query("enterprise_id"),
		Year:         c.Query("year"),
		Month:        c.Query("month"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) myPayments(c *gin.Context) {
	resp, err := s.billingSvc.MyPayments(c.Request.Context(), currentAccount(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// requestParam reads a value from the query string first, then from posted
// form data, mirroring endpoints that accept both.
func requestParam(c *gin.Context, key string) string {
	if value := c.Query(key); value != "" {
		return value
	}
	return c.PostForm(key)
}

func parseBoolValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on", "si":
		return true
	}
	return false
}
