package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/fckfck97/cie-corpoindustrial/internal/billing/domain"
	"gorm.io/datatypes"
)

// NotificationLog records one delivered reminder per payment and stage. The
// unique index is what makes live runs idempotent.
type NotificationLog struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id,string"`
	PaymentID    snowflake.ID      `gorm:"uniqueIndex:ux_notification_stage,priority:1" json:"payment_id,string"`
	EnterpriseID snowflake.ID      `json:"enterprise_id,string"`
	Stage        int               `gorm:"uniqueIndex:ux_notification_stage,priority:2" json:"stage"`
	StageLabel   string            `json:"stage_label"`
	EmailSent    bool              `json:"email_sent"`
	SMSSent      bool              `json:"sms_sent"`
	SentToEmail  string            `json:"sent_to_email"`
	SentToPhone  string            `json:"sent_to_phone"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (NotificationLog) TableName() string {
	return "payment_notification_logs"
}

// StageFor maps a payment's position in the delinquency timeline to a
// reminder stage. Zero means no reminder applies today.
func StageFor(payment *billingdomain.MonthlyPayment, today time.Time) int {
	if payment.Status == billingdomain.StatusPaid {
		return 0
	}

	daysToDue := daysBetween(today, payment.DueDate)
	daysAfterDue := -daysToDue

	switch {
	case daysToDue == 2:
		return 1
	case daysToDue == 1:
		return 2
	case daysToDue == 0:
		return 3
	case daysAfterDue == 1 && !today.After(payment.GraceDate):
		return 4
	case daysAfterDue >= 2:
		return 5
	}
	return 0
}

// Template holds the rendered message set for one stage.
type Template struct {
	Label   string
	Subject string
	Email   string
	SMS     string
}

// MessagesFor renders the stage template for a payment. Returns nil for an
// unknown stage.
func MessagesFor(payment *billingdomain.MonthlyPayment, enterpriseName string, stage int, today time.Time) *Template {
	period := payment.PeriodLabel()
	amount := payment.Amount.StringFixed(2)
	dueStr := payment.DueDate.Format("2006-01-02")
	graceStr := payment.GraceDate.Format("2006-01-02")
	blocked := today.After(payment.GraceDate)

	switch stage {
	case 1:
		return &Template{
			Label:   "Vence en 2 dias",
			Subject: fmt.Sprintf("[Inside] Tu pago vence en 2 dias (%s)", period),
			Email: fmt.Sprintf("Hola %s,\n\n"+
				"Tu pago mensual (%s) por valor de %s vence el %s.\n"+
				"Te recomendamos pagarlo para evitar bloqueos.\n\n"+
				"Equipo Inside", enterpriseName, period, amount, dueStr),
			SMS: fmt.Sprintf("Inside: Tu pago %s por %s vence en 2 dias (%s).", period, amount, dueStr),
		}
	case 2:
		return &Template{
			Label:   "Vence en 1 dia",
			Subject: fmt.Sprintf("[Inside] Recordatorio: tu pago vence manana (%s)", period),
			Email: fmt.Sprintf("Hola %s,\n\n"+
				"Recordatorio: tu pago mensual (%s) por %s vence manana (%s).\n"+
				"Si no se registra, podrias entrar en mora.\n\n"+
				"Equipo Inside", enterpriseName, period, amount, dueStr),
			SMS: fmt.Sprintf("Inside: Recordatorio, tu pago %s por %s vence manana.", period, amount),
		}
	case 3:
		return &Template{
			Label:   "Vence hoy",
			Subject: fmt.Sprintf("[Inside] Tu pago vence hoy (%s)", period),
			Email: fmt.Sprintf("Hola %s,\n\n"+
				"Hoy vence tu pago mensual (%s) por %s.\n"+
				"Tienes plazo de gracia hasta el %s.\n\n"+
				"Equipo Inside", enterpriseName, period, amount, graceStr),
			SMS: fmt.Sprintf("Inside: Tu pago %s vence hoy. Gracia hasta %s.", period, graceStr),
		}
	case 4:
		return &Template{
			Label:   "Dia 1 de gracia",
			Subject: fmt.Sprintf("[Inside] Estas en dia 1 de gracia (%s)", period),
			Email: fmt.Sprintf("Hola %s,\n\n"+
				"Tu pago mensual (%s) por %s esta en dia 1 de gracia.\n"+
				"Fecha limite de gracia: %s.\n"+
				"Si no pagas, tus usuarios perderan acceso temporal.\n\n"+
				"Equipo Inside", enterpriseName, period, amount, graceStr),
			SMS: fmt.Sprintf("Inside: Dia 1 de gracia para pago %s. Limite %s.", period, graceStr),
		}
	case 5:
		tail := "Hoy es el ultimo dia de gracia antes del bloqueo."
		smsTail := "Ultimo dia de gracia hoy."
		if blocked {
			tail = "Tu empresa ya se encuentra bloqueada para acceso de usuarios."
			smsTail = "Empresa bloqueada por mora."
		}
		return &Template{
			Label:   "Dia 2 de gracia / bloqueado",
			Subject: fmt.Sprintf("[Inside] Ultimo aviso de mora (%s)", period),
			Email: fmt.Sprintf("Hola %s,\n\n"+
				"Tu pago mensual (%s) por %s esta en mora avanzada.\n"+
				"Limite de gracia: %s.\n"+
				"%s\n\n"+
				"Equipo Inside", enterpriseName, period, amount, graceStr, tail),
			SMS: fmt.Sprintf("Inside: Mora en pago %s. %s", period, smsTail),
		}
	}
	return nil
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone converts a raw phone into E.164 for Colombian numbers.
// Ten local digits get the +57 prefix; numbers that already carry an
// international prefix keep it. Returns "" when the input is unusable.
func NormalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "+") {
		if len(digits) >= 10 {
			return "+" + digits
		}
		return ""
	}
	if len(digits) == 10 {
		return "+57" + digits
	}
	if len(digits) == 12 && strings.HasPrefix(digits, "57") {
		return "+" + digits
	}
	return ""
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
