package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bookhub/internal/auth"
	"bookhub/internal/books"
	"bookhub/internal/fb2"
	"bookhub/internal/fetch"
	"bookhub/internal/library"
	"bookhub/internal/notify"
	"bookhub/internal/reviews"
	synchub "bookhub/internal/sync"
	"bookhub/pkg/database"
	"bookhub/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := synchub.NewHub()
	router.GET("/ws", synchub.WSHandler(hub))
	tcpSrv := synchub.NewServer(":7070", hub)

	registry := notify.NewRegistry()
	notifySrv := notify.NewServer(":7071", registry, nil)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Books and reviews (public)
	bookRepo := books.NewRepo(db)
	books.NewHandler(bookRepo).RegisterRoutes(router.Group("/books"))

	reviewRepo := reviews.NewRepo(db)
	reviews.NewHandler(reviewRepo).RegisterPublicRoutes(router.Group(""))

	// Reading surface (public)
	fb2.NewHandler(bookRepo).RegisterRoutes(router.Group(""))

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	auth.NewHandler(authRepo, tokenSvc).RegisterRoutes(router.Group("/auth"))

	// Protected routes
	protected := router.Group("/users")
	protected.Use(auth.Middleware(tokenSvc, authRepo))

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
		})
	})

	// Reading progress (protected)
	libRepo := library.NewRepo(db)
	library.NewHandler(libRepo, hub).RegisterRoutes(protected)

	// Sync triggers (protected). Runs are sequential; a second trigger while
	// one is in flight gets a 409.
	syncCfg := utils.LoadSyncConfig()
	flCfg := utils.LoadFantLabConfig()
	atCfg := utils.LoadAuthorTodayConfig()

	flAPI := fetch.NewClient("fantlab", flCfg.APIURL, 15*time.Second)
	if flCfg.APIKey != "" {
		flAPI.SetBearerToken(flCfg.APIKey)
	}
	flWeb := fetch.NewClient("fantlab-web", flCfg.WebURL, 15*time.Second)
	fantlab := synchub.NewFantLab(bookRepo, reviewRepo, flAPI, flWeb, syncCfg.BookDelay)
	fantlab.Hub = hub
	fantlab.Notify = notifySrv

	atAPI := fetch.NewClient("authortoday", atCfg.APIURL, 15*time.Second)
	atWeb := fetch.NewClient("authortoday-web", atCfg.WebURL, 15*time.Second)
	authorToday := synchub.NewAuthorToday(bookRepo, reviewRepo, atAPI, atWeb, atCfg.Login, atCfg.Password, syncCfg.BookDelay)
	authorToday.Token = atCfg.Token
	authorToday.Hub = hub
	authorToday.Notify = notifySrv

	var (
		runMu       sync.Mutex
		running     bool
		lastSummary *synchub.RunSummary
	)
	trigger := func(name string, run func(context.Context, int64) synchub.RunSummary) gin.HandlerFunc {
		return func(c *gin.Context) {
			var bookID int64
			if raw := c.Query("book_id"); raw != "" {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id <= 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book_id"})
					return
				}
				bookID = id
			}

			runMu.Lock()
			if running {
				runMu.Unlock()
				c.JSON(http.StatusConflict, gin.H{"error": "a sync run is already in flight"})
				return
			}
			running = true
			runMu.Unlock()

			go func() {
				summary := run(context.Background(), bookID)
				if !summary.Success {
					log.Printf("[api] %s sync failed: %s", name, summary.Error)
				}
				runMu.Lock()
				running = false
				lastSummary = &summary
				runMu.Unlock()
			}()

			c.JSON(http.StatusAccepted, gin.H{"status": "started", "platform": name})
		}
	}

	runFantlab := func(ctx context.Context, bookID int64) synchub.RunSummary {
		fl := *fantlab
		fl.OnlyBookID = bookID
		return fl.Run(ctx)
	}
	runAuthorToday := func(ctx context.Context, bookID int64) synchub.RunSummary {
		at := *authorToday
		at.OnlyBookID = bookID
		return at.Run(ctx)
	}

	syncRoutes := router.Group("/sync")
	syncRoutes.Use(auth.Middleware(tokenSvc, authRepo))
	syncRoutes.POST("/fantlab", trigger("fantlab", runFantlab))
	syncRoutes.POST("/authortoday", trigger("authortoday", runAuthorToday))
	syncRoutes.GET("/status", func(c *gin.Context) {
		runMu.Lock()
		defer runMu.Unlock()
		resp := gin.H{"running": running}
		if lastSummary != nil {
			resp["last_run"] = lastSummary
		}
		c.JSON(http.StatusOK, resp)
	})

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifySrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("HTTP API server listening on :8080")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}
	if err := notifySrv.Close(); err != nil {
		log.Printf("notify shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
