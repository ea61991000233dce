package bootstrap

import (
	"github.com/gin-gonic/gin"

	"descomplicacv/internal/cvapi"
	"descomplicacv/internal/cvstore"
	"descomplicacv/internal/shared/config"
	"descomplicacv/internal/shared/telemetry"
	"descomplicacv/internal/web"
)

// WebApp holds the browser front end: API client, state store and router.
type WebApp struct {
	Config config.Config
	Client *cvapi.Client
	Store  *cvstore.Store
	Router *gin.Engine
}

// BuildWeb installs the API client, the state store and the router. It holds no logic beyond wiring.
func BuildWeb(cfg config.Config) (*WebApp, error) {
	client := cvapi.NewClient(cfg.APIURL, cvapi.WithTimeout(cfg.APITimeout))
	store := cvstore.New(client,
		cvstore.WithAllowedTypes(cfg.AllowedTypes),
		cvstore.WithObserver(logStateChange),
	)

	router, err := web.NewRouter(web.Deps{
		Store:          store,
		AllowedTypes:   cfg.AllowedTypes,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		return nil, err
	}

	return &WebApp{
		Config: cfg,
		Client: client,
		Store:  store,
		Router: router,
	}, nil
}

func logStateChange(s cvstore.State) {
	fields := map[string]any{"processing": s.Processing}
	if s.CurrentFile != nil {
		fields["file_name"] = s.CurrentFile.Name
		fields["file_type"] = s.CurrentFile.Type
		fields["file_size"] = s.CurrentFile.Size
	}
	if s.Error != "" {
		fields["error"] = s.Error
	}
	telemetry.Info("cvstore.state", fields)
}
