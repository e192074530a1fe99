package user

import (
	"github.com/swapforge/swapforge/internal/user/repository"
	"github.com/swapforge/swapforge/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
