package providers

import (
	"github.com/fckfck97/cie-corpoindustrial/internal/providers/email"
	"github.com/fckfck97/cie-corpoindustrial/internal/providers/sms"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	sms.Module,
)
