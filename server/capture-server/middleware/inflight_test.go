package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/framegrab/server/core/stats"
)

func TestTrack_CountsDuringRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	counter := stats.NewInFlightCounter(nil)
	m := NewInFlightMiddleware(nil, counter, nil)

	var seen int64
	router := gin.New()
	router.Use(m.Track())
	router.GET("/work", func(c *gin.Context) {
		seen = counter.Snapshot()
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/work", nil))
	if seen != 1 {
		t.Errorf("Expected 1 in flight during the request, got %d", seen)
	}
	if counter.Snapshot() != 0 {
		t.Errorf("Expected 0 after the request, got %d", counter.Snapshot())
	}

	withRecovery := gin.New()
	withRecovery.Use(gin.Recovery(), m.Track())
	withRecovery.GET("/panic", func(c *gin.Context) { panic("boom") })
	withRecovery.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))
	if counter.Snapshot() != 0 {
		t.Errorf("Expected counter to be released after a panic, got %d", counter.Snapshot())
	}
}

func TestLimit_RejectsWhenExhausted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewInFlightMiddleware(nil, stats.NewInFlightCounter(nil), stats.NewLimiter(1))

	release := make(chan struct{})
	entered := make(chan struct{})

	router := gin.New()
	router.Use(m.Limit())
	router.GET("/work", func(c *gin.Context) {
		if c.Query("block") == "1" {
			close(entered)
			<-release
		}
		c.Status(http.StatusOK)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/work?block=1", nil))
	}()
	<-entered

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/work", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 while the slot is held, got %d", rec.Code)
	}

	close(release)
	wg.Wait()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/work", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 after release, got %d", rec.Code)
	}
}
