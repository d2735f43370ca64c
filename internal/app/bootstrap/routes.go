// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	activitiesfeature "github.com/dalemusser/servicehub/internal/app/features/activities"
	areasfeature "github.com/dalemusser/servicehub/internal/app/features/areas"
	healthfeature "github.com/dalemusser/servicehub/internal/app/features/health"
	paymentsfeature "github.com/dalemusser/servicehub/internal/app/features/payments"
	promotionsfeature "github.com/dalemusser/servicehub/internal/app/features/promotions"
	sessionfeature "github.com/dalemusser/servicehub/internal/app/features/session"
	uploadsfeature "github.com/dalemusser/servicehub/internal/app/features/uploads"
	usersfeature "github.com/dalemusser/servicehub/internal/app/features/users"
	sessionstore "github.com/dalemusser/servicehub/internal/app/store/sessions"
	"github.com/dalemusser/servicehub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. ServiceHub builds the token manager,
// the file-storage backend, and mounts the JSON API feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	sessions := sessionstore.New(db)
	mgr, err := auth.NewManager(appCfg.JWTSecret, appCfg.AccessTokenTTL, appCfg.RefreshTokenTTL, sessions, logger)
	if err != nil {
		logger.Error("auth manager init failed", zap.Error(err))
		return nil, err
	}

	store, err := buildStorage(appCfg, logger)
	if err != nil {
		logger.Error("storage init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	// Global auth middleware: loads the token's SessionUser into context so
	// handlers can use auth.CurrentUser(r). Requests without a valid token
	// pass through anonymous; RequireSignedIn gates per route.
	r.Use(mgr.LoadUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Locally stored uploads are served straight from disk; with the S3
	// backend objects are fetched through presigned URLs instead.
	if appCfg.StorageType == "local" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	sessionHandler := sessionfeature.NewHandler(db, mgr, logger)
	r.Mount("/api/session", sessionfeature.Routes(sessionHandler))

	activitiesHandler := activitiesfeature.NewHandler(db, logger)
	r.Mount("/api/activity", activitiesfeature.Routes(activitiesHandler))

	usersHandler := usersfeature.NewHandler(db, logger)
	r.Mount("/api/user", usersfeature.Routes(usersHandler, activitiesHandler.HandleListByUser))

	areasHandler := areasfeature.NewHandler(db, store, logger)
	r.Mount("/api/area", areasfeature.Routes(areasHandler))

	paymentsHandler := paymentsfeature.NewHandler(db, store, logger)
	r.Mount("/api/payment", paymentsfeature.Routes(paymentsHandler))

	uploadsHandler := uploadsfeature.NewHandler(store, logger)
	r.Mount("/api/upload", uploadsfeature.Routes(uploadsHandler))

	promotionsHandler := promotionsfeature.NewHandler(db, logger)
	r.Mount("/api/promotion", promotionsfeature.Routes(promotionsHandler))

	return r, nil
}

// buildStorage selects the file-storage backend from config.
func buildStorage(appCfg AppConfig, logger *zap.Logger) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch appCfg.StorageType {
	case "local":
		store, err = storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.StorageLocalPath,
			BaseURL:  appCfg.StorageLocalURL,
		})
	case "s3":
		store, err = storage.NewS3(context.Background(), storage.S3Config{
			Region: appCfg.StorageS3Region,
			Bucket: appCfg.StorageS3Bucket,
			Prefix: appCfg.StorageS3Prefix,

			CloudFrontURL:            appCfg.StorageCFURL,
			CloudFrontKeyPairID:      appCfg.StorageCFKeyPairID,
			CloudFrontPrivateKeyPath: appCfg.StorageCFKeyPath,
		})
	default:
		return nil, fmt.Errorf("%w: unknown storage type %q", storage.ErrInvalidConfig, appCfg.StorageType)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("file storage ready", zap.String("type", appCfg.StorageType))
	return store, nil
}
