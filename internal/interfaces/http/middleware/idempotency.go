package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"stablepay.backend/pkg/redis"
	"stablepay.backend/pkg/utils"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	// LockDuration is the time the lock is held while the request runs
	LockDuration = 30 * time.Second
	// RetentionDuration is how long a successful response is replayable
	RetentionDuration = 24 * time.Hour
)

var (
	redisGet   = redis.Get
	redisSet   = redis.Set
	redisSetNX = redis.SetNX
	redisDel   = redis.Del
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key instead of processing the request twice. Keys are scoped
// by the payer address in the request body; there is no account system to
// scope by.
func IdempotencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		storageKey := fmt.Sprintf("idempotency:%s:%s", payerScope(c), key)
		ctx := c.Request.Context()

		val, err := redisGet(ctx, storageKey)
		if err == nil {
			if val == "processing" {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"code":    "ERR_IDEMPOTENCY_CONFLICT",
					"message": "request already in progress",
				})
				return
			}
			c.Header("Content-Type", "application/json")
			c.Header("X-Idempotency-Hit", "true")
			c.String(http.StatusOK, val)
			c.Abort()
			return
		}

		acquired, err := redisSetNX(ctx, storageKey, "processing", LockDuration)
		if err != nil {
			// redis down: let the request through rather than block payments
			c.Next()
			return
		}
		if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"code":    "ERR_IDEMPOTENCY_CONFLICT",
				"message": "request already in progress",
			})
			return
		}

		w := &responseWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			_ = redisSet(ctx, storageKey, w.body.String(), RetentionDuration)
		} else {
			// failed attempts are retryable under the same key
			_ = redisDel(ctx, storageKey)
		}
	}
}

// payerScope extracts the payer address from the JSON body without consuming
// it. Unparsable bodies fall back to a global scope; the key alone still
// dedupes.
func payerScope(c *gin.Context) string {
	body, err := c.GetRawData()
	if err != nil {
		return "global"
	}
	c.Request.Body = newReplayBody(body)

	var probe struct {
		PayerAddress string `json:"payerAddress"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.PayerAddress == "" {
		return "global"
	}
	return utils.NormalizeAddress(probe.PayerAddress)
}

func newReplayBody(body []byte) *replayBody {
	return &replayBody{Reader: bytes.NewReader(body)}
}

type replayBody struct {
	*bytes.Reader
}

func (r *replayBody) Close() error { return nil }
