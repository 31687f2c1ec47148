package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/tmc/langchaingo/llms/ollama"

	"fileshare/server/common/infra/cache"
	"fileshare/server/common/infra/db"
	"fileshare/server/common/infra/mq"
	"fileshare/server/common/infra/object"
	commonlog "fileshare/server/common/log"
	"fileshare/server/common/middleware"
	"fileshare/server/common/transport/httpresp"
	fileapi "fileshare/server/fileman/api"
	"fileshare/server/fileman/repository"
	fileservice "fileshare/server/fileman/service"
	ragapi "fileshare/server/rag/api"
	ragservice "fileshare/server/rag/service"
	weatherapi "fileshare/server/weather/api"
	weatherservice "fileshare/server/weather/service"
)

type Server struct {
	HTTPServer *http.Server
	closers    []func()
}

// Migrate applies the schema of the configured metadata driver.
func Migrate(cfg Config) error {
	switch cfg.MetadataDriver {
	case MetadataPostgres:
		return db.MigratePostgres(cfg.PostgresDSN)
	case MetadataSQLite:
		return db.MigrateSQLite(cfg.SQLitePath)
	default:
		return fmt.Errorf("unknown metadata driver %q", cfg.MetadataDriver)
	}
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := &Server{}
	files, readyCheck, err := s.openMetadata(ctx, cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	events, err := s.openEvents(cfg)
	if err != nil {
		s.close()
		return nil, err
	}

	fileSvc := fileservice.NewFileService(files, objects, events, fileservice.Config{
		Locale:                 cfg.Locale,
		CleanupOrphanOnFailure: cfg.UploadCleanupOrphans,
		Thumbnails:             cfg.UploadThumbnails,
	})
	weatherSvc := weatherservice.NewWeatherService(weatherservice.Config{
		APIKey:   cfg.WeatherAPIKey,
		APIURL:   cfg.WeatherAPIURL,
		CacheTTL: cfg.WeatherCacheTTL,
	}, s.openWeatherCache(ctx, cfg))

	generator, err := openGenerator(cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	ragSvc := ragservice.NewRAGService(objects, generator, ragservice.Config{Prefix: cfg.RAGPrefix})
	if err := ragSvc.Load(ctx); err != nil {
		commonlog.Warnf("rag index starts empty: %v", err)
	}

	maxUploadMemory := int64(cfg.UploadMaxMemoryMB) << 20
	r := gin.Default()
	r.MaxMultipartMemory = maxUploadMemory
	r.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))
	r.Use(middleware.Metrics())
	registerHealth(r, readyCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	fileapi.NewHandler(fileSvc, maxUploadMemory).RegisterRoutes(r)
	weatherapi.NewHandler(weatherSvc).RegisterRoutes(r)
	ragapi.NewHandler(ragSvc).RegisterRoutes(r)

	s.HTTPServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.HTTPServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func (s *Server) openMetadata(ctx context.Context, cfg Config) (repository.FileRepository, func(context.Context) error, error) {
	switch cfg.MetadataDriver {
	case MetadataPostgres:
		pool, err := db.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		return repository.NewPostgresFileRepository(pool), pool.Ping, nil
	case MetadataSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize sqlite: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		return repository.NewSQLiteFileRepository(conn), conn.PingContext, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata driver %q", cfg.MetadataDriver)
	}
}

func openObjectStore(ctx context.Context, cfg Config) (object.Store, error) {
	switch cfg.ObjectStoreDriver {
	case ObjectStoreMinIO:
		client, err := object.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("initialize minio: %w", err)
		}
		if err := object.EnsureBucket(ctx, client, cfg.MinioBucket); err != nil {
			return nil, fmt.Errorf("ensure minio bucket: %w", err)
		}
		return object.NewMinIOStore(client, cfg.MinioBucket), nil
	case ObjectStoreS3:
		store := object.NewS3Store(object.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
		})
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure s3 bucket: %w", err)
		}
		return store, nil
	case ObjectStoreLocal:
		root, err := filepath.Abs(cfg.LocalStoreDir)
		if err != nil {
			return nil, fmt.Errorf("resolve local store dir: %w", err)
		}
		return object.NewLocalStore(afero.NewOsFs(), root), nil
	default:
		return nil, fmt.Errorf("unknown object store driver %q", cfg.ObjectStoreDriver)
	}
}

func (s *Server) openEvents(cfg Config) (fileservice.EventPublisher, error) {
	if strings.TrimSpace(cfg.LavinMQURL) == "" {
		return nil, nil
	}
	conn, err := mq.NewConnection(cfg.LavinMQURL)
	if err != nil {
		return nil, fmt.Errorf("connect lavinmq: %w", err)
	}
	publisher, err := mq.NewPublisher(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize event publisher: %w", err)
	}
	s.closers = append(s.closers, publisher.Close)
	return publisher, nil
}

// openWeatherCache prefers Redis and falls back to an in-process LRU when
// Redis is unset or unreachable.
func (s *Server) openWeatherCache(ctx context.Context, cfg Config) weatherservice.Cache {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return weatherservice.NewMemoryCache(cfg.WeatherCacheTTL)
	}
	client := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := cache.Ping(ctx, client); err != nil {
		commonlog.Warnf("redis %s unavailable, weather cache is in-process: %v", cfg.RedisAddr, err)
		_ = client.Close()
		return weatherservice.NewMemoryCache(cfg.WeatherCacheTTL)
	}
	s.closers = append(s.closers, func() { _ = client.Close() })
	return weatherservice.NewRedisCache(client, cfg.WeatherCacheTTL)
}

func openGenerator(cfg Config) (ragservice.Generator, error) {
	if strings.TrimSpace(cfg.OllamaModel) == "" {
		return nil, nil
	}
	llm, err := ollama.New(ollama.WithModel(cfg.OllamaModel), ollama.WithServerURL(cfg.OllamaURL))
	if err != nil {
		return nil, fmt.Errorf("initialize ollama: %w", err)
	}
	return llm, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	return cfg
}

func registerHealth(r gin.IRouter, readyCheck func(context.Context) error) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpresp.NewHealthResponse("ok", nil))
	})
	r.GET("/health/ready", func(c *gin.Context) {
		if readyCheck != nil {
			if err := readyCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpresp.NewHealthResponse("not_ready", err))
				return
			}
		}
		c.JSON(http.StatusOK, httpresp.NewHealthResponse("ready", nil))
	})
}
