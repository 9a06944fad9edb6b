package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Origins is the CORS allow-list; Set may be called while serving.
type Origins struct {
	mu      sync.RWMutex
	allowed map[string]bool
}

func NewOrigins(list []string) *Origins {
	o := &Origins{}
	o.Set(list)
	return o
}

func (o *Origins) Set(list []string) {
	allowed := make(map[string]bool, len(list))
	for _, origin := range list {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = true
		}
	}
	o.mu.Lock()
	o.allowed = allowed
	o.mu.Unlock()
}

func (o *Origins) Allow(origin string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.allowed[origin]
}

func CORS(origins *Origins) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  origins.Allow,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
