package payment

import (
	"github.com/swapforge/swapforge/internal/payment/repository"
	"github.com/swapforge/swapforge/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
