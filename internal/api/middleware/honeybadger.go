package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
)

// HoneybadgerMiddleware sends error/warning notifications to Honeybadger.
// Errors attached by handlers with c.Error are reported with their own message.
// On panic, it notifies Honeybadger and re-panics to allow gin.Recovery to handle the response.
// An empty apiKey disables reporting.
func HoneybadgerMiddleware(apiKey, env string, log *logrus.Entry) gin.HandlerFunc {
	if apiKey == "" {
		log.Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	honeybadger.Configure(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    env,
	})

	log.Info("Honeybadger error reporting is enabled.")

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				honeybadger.Notify(fmt.Sprintf("Panic: %s %s", c.Request.Method, c.Request.URL.Path),
					c.Request, honeybadger.Context{"stack": string(debug.Stack())}, honeybadger.Tags{"panic", "http"})
				log.Error("Recovered from panic, notified Honeybadger: ", rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status < 400 || status == 404 {
			return
		}

		route := fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())
		if status >= 500 {
			if len(c.Errors) > 0 {
				for _, e := range c.Errors {
					honeybadger.Notify(e.Err, c.Request, honeybadger.Context{"route": route, "status": status}, honeybadger.Tags{"5XX", "http"})
				}
			} else {
				honeybadger.Notify(fmt.Sprintf("Error: HTTP %d: %s", status, route), c.Request, honeybadger.Tags{"5XX", "http"})
			}
		} else {
			honeybadger.Notify(fmt.Sprintf("Warning: HTTP %d: %s", status, route), honeybadger.Tags{"4XX", "http"})
		}
		log.Warnf("Honeybadger reported HTTP %d for %s", status, route)
	}
}
