package credit

import (
	"github.com/swapforge/swapforge/internal/credit/repository"
	"github.com/swapforge/swapforge/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
