package service

import (
	"fmt"
	"log/slog"

	"github.com/kaymio/productcast/internal/creative"
	"github.com/kaymio/productcast/internal/generation"
	"github.com/kaymio/productcast/internal/handlers"
	"github.com/kaymio/productcast/internal/importer"
	"github.com/kaymio/productcast/internal/media"
	"github.com/kaymio/productcast/internal/ollama"
	"github.com/kaymio/productcast/internal/openai"
	"github.com/kaymio/productcast/internal/platforms/canopy"
	"github.com/kaymio/productcast/internal/platforms/instagram"
	"github.com/kaymio/productcast/internal/platforms/pinterest"
	"github.com/kaymio/productcast/internal/platforms/tiktok"
	"github.com/kaymio/productcast/internal/platforms/woocommerce"
	"github.com/kaymio/productcast/internal/platforms/youtube"
	"github.com/kaymio/productcast/internal/state"
	"github.com/kaymio/productcast/storage"
	"github.com/labstack/echo/v4"
)

// imageDownloadsPerMinute throttles Amazon CDN fetches.
const imageDownloadsPerMinute = 30

type Service struct {
	storage  *storage.Storage
	config   *Config
	media    *media.Store
	state    *state.Store
	workflow *handlers.WorkflowHandler
}

// Clients are the provider clients built from config. The CLI reuses them
// for the OAuth flows.
type Clients struct {
	Text        *openai.Client
	LocalText   *ollama.Client
	Creative    creative.Generator
	Pinterest   *pinterest.Client
	Instagram   *instagram.Client
	TikTok      *tiktok.Client
	YouTube     *youtube.Client
	WooCommerce *woocommerce.Client
	Canopy      *canopy.Client
}

func NewClients(config *Config) *Clients {
	return &Clients{
		Text: openai.NewClient(openai.Config{
			APIKey: config.OpenAI.APIKey,
			Model:  config.OpenAI.TextModel,
		}),
		LocalText: ollama.NewClient(ollama.Config{
			BaseURL: config.Ollama.URL,
			Model:   config.Ollama.Model,
		}),
		Creative: creative.New(creative.GeminiConfig{
			APIKey:     config.Gemini.APIKey,
			ImageModel: config.Gemini.ImageModel,
			VideoModel: config.Gemini.VideoModel,
		}),
		Pinterest: pinterest.NewClient(pinterest.Config{
			AccessToken: config.Pinterest.AccessToken,
			TokenFile:   config.Pinterest.TokenFile,
			BoardID:     config.Pinterest.BoardID,
			AppID:       config.Pinterest.AppID,
			AppSecret:   config.Pinterest.AppSecret,
			RedirectURI: config.Pinterest.RedirectURI,
		}),
		Instagram: instagram.NewClient(instagram.Config{
			AccessToken: config.Instagram.AccessToken,
			UserID:      config.Instagram.UserID,
			TokenFile:   config.Instagram.TokenFile,
			AppID:       config.Instagram.AppID,
			AppSecret:   config.Instagram.AppSecret,
			RedirectURI: config.Instagram.RedirectURI,
		}),
		TikTok: tiktok.NewClient(tiktok.Config{
			AccessToken: config.TikTok.AccessToken,
			OpenID:      config.TikTok.UserID,
		}),
		YouTube: youtube.NewClient(youtube.Config{
			ClientID:        config.YouTube.ClientID,
			ClientSecret:    config.YouTube.ClientSecret,
			RefreshToken:    config.YouTube.RefreshToken,
			RedirectURI:     config.YouTube.RedirectURI,
			AccessTokenFile: config.YouTube.AccessTokenFile,
		}),
		WooCommerce: woocommerce.NewClient(woocommerce.Config{
			BaseURL:        config.WooCommerce.APIURL,
			Username:       config.WooCommerce.Username,
			Password:       config.WooCommerce.Password,
			ConsumerKey:    config.WooCommerce.ConsumerKey,
			ConsumerSecret: config.WooCommerce.ConsumerSecret,
		}),
		Canopy: canopy.NewClient(canopy.Config{
			APIKey:  config.Amazon.CanopyAPIKey,
			StoreID: config.Amazon.StoreID,
		}),
	}
}

// New wires the stores, provider clients and workflow handler. storage may
// be nil, in which case publish history is not recorded.
func New(storage *storage.Storage, config *Config) (*Service, error) {
	mediaStore, err := media.New(config.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("open media store: %w", err)
	}
	stateStore, err := state.NewStore(config.Storage.StateFile)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	clients := NewClients(config)
	clients.Instagram.SetResolver(handlers.NewMediaRehoster(mediaStore, clients.WooCommerce))

	var text generation.TextGenerator
	switch {
	case clients.Text.IsConfigured():
		text = clients.Text
	case clients.LocalText.IsConfigured():
		slog.Info("using ollama for generated copy", "model", clients.LocalText.Model())
		text = clients.LocalText
	default:
		slog.Warn("no text generator configured, generated copy will use fallbacks")
	}

	workflow := handlers.NewWorkflowHandler(handlers.WorkflowDeps{
		State:         stateStore,
		Media:         mediaStore,
		Generator:     generation.New(text, clients.Creative, mediaStore),
		History:       newHistory(storage),
		Pinterest:     clients.Pinterest,
		Instagram:     clients.Instagram,
		TikTok:        clients.TikTok,
		YouTube:       clients.YouTube,
		Storefront:    clients.WooCommerce,
		Amazon:        clients.Canopy,
		Images:        importer.NewImageDownloader(importer.NewHTTPClient(imageDownloadsPerMinute, 0)),
		BaseURL:       config.BaseURL,
		AmazonCountry: config.Amazon.Country,
	})

	slog.Info("workflow configured",
		"media_root", mediaStore.Root(),
		"state_file", stateStore.Path(),
		"creative", clients.Creative.Name(),
		"pinterest", clients.Pinterest.IsConfigured(),
		"instagram", clients.Instagram.IsConfigured(),
		"tiktok", clients.TikTok.IsConfigured(),
		"youtube", clients.YouTube.IsConfigured(),
		"woocommerce", clients.WooCommerce.IsConfigured(),
		"canopy", clients.Canopy.IsConfigured(),
	)

	return &Service{
		storage:  storage,
		config:   config,
		media:    mediaStore,
		state:    stateStore,
		workflow: workflow,
	}, nil
}

func newHistory(s *storage.Storage) *storage.History {
	if s == nil || s.Queries == nil {
		return nil
	}
	return storage.NewHistory(s.Queries)
}

func (s *Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/", s.workflow.HandleHome)
	e.GET("/health", handlers.HandleHealth)
	e.GET("/media/*", s.workflow.HandleMedia)

	// Drafts and state
	e.POST("/save-draft", s.workflow.HandleSaveDraft)
	e.POST("/reset-platform", s.workflow.HandleResetPlatform)
	e.POST("/lookup-amazon", s.workflow.HandleLookupAmazon)

	// Pinterest
	e.POST("/generate-pinterest", s.workflow.HandleGeneratePinterest)
	e.POST("/confirm-pinterest", s.workflow.HandleConfirmPinterest)

	// Instagram
	e.POST("/generate-instagram-image", s.workflow.HandleGenerateInstagramImage)
	e.POST("/publish-instagram", s.workflow.HandlePublishInstagram)

	// Video
	e.POST("/generate-video/:platform", s.workflow.HandleGenerateVideo)
	e.POST("/publish-youtube", s.workflow.HandlePublishYouTube)
	e.POST("/publish-tiktok", s.workflow.HandlePublishTikTok)

	// Storefront
	e.POST("/publish-website", s.workflow.HandlePublishWebsite)
}
