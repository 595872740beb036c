package middleware

import (
	"github.com/ridecore/dispatch/pkg/logger"
)

type Middleware struct {
	jwtSecret string
	log       logger.Logger
}

func NewMiddleware(jwtSecret string, log logger.Logger) *Middleware {
	return &Middleware{
		jwtSecret: jwtSecret,
		log:       log,
	}
}
