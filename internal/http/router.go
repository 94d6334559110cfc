package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(logger *zap.Logger, convoH *ConversationHandler) *gin.Engine {
	r := gin.New()

	// c.JSON ya fija Content-Type en cada respuesta.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/create", convoH.CreateConversation)
	r.GET("/convos", convoH.GetConversations)
	r.GET("/convo/:id", convoH.GetConversation)
	r.POST("/chat", convoH.Chat)
	r.GET("/healthz", convoH.Health)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
