package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Port        string
	BaseURL     string
	DBPath      string
	SecretKey   string

	Storage struct {
		Root      string
		StateFile string
	}

	Upload struct {
		MaxSize int64
	}

	OpenAI struct {
		APIKey    string
		TextModel string
	}

	Ollama struct {
		URL   string
		Model string
	}

	Gemini struct {
		APIKey     string
		ImageModel string
		VideoModel string
	}

	Pinterest struct {
		AccessToken string
		TokenFile   string
		BoardID     string
		AppID       string
		AppSecret   string
		RedirectURI string
	}

	Instagram struct {
		AccessToken string
		UserID      string
		TokenFile   string
		AppID       string
		AppSecret   string
		RedirectURI string
	}

	TikTok struct {
		AccessToken string
		UserID      string
	}

	YouTube struct {
		ClientID        string
		ClientSecret    string
		RefreshToken    string
		RedirectURI     string
		AccessTokenFile string
	}

	WooCommerce struct {
		APIURL         string
		Username       string
		Password       string
		ConsumerKey    string
		ConsumerSecret string
	}

	Amazon struct {
		CanopyAPIKey string
		StoreID      string
		Country      string
	}
}

// LoadConfig reads the environment, after loading .env when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8000"),
		BaseURL:     getEnv("BASE_URL", ""),
		SecretKey:   getEnv("SECRET_KEY", "development-secret"),
	}

	// Storage
	config.Storage.Root = getEnv("STORAGE_ROOT", "./storage_data")
	config.Storage.StateFile = getEnv("STATE_FILE", filepath.Join(config.Storage.Root, "state", "app_state.json"))
	config.DBPath = getEnv("DB_PATH", filepath.Join(config.Storage.Root, "db", "productcast.db"))

	// Upload
	maxSize := getEnv("UPLOAD_MAX_SIZE", "33554432") // 32MB default
	if size, err := strconv.ParseInt(maxSize, 10, 64); err == nil && size > 0 {
		config.Upload.MaxSize = size
	} else {
		config.Upload.MaxSize = 33554432
	}

	// Text generation
	config.OpenAI.APIKey = getEnv("OPENAI_API_KEY", "")
	config.OpenAI.TextModel = getEnv("OPENAI_TEXT_MODEL", "gpt-4.1-mini")
	config.Ollama.URL = getEnv("OLLAMA_URL", "")
	config.Ollama.Model = getEnv("OLLAMA_MODEL", "")

	// Image and video generation
	config.Gemini.APIKey = getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", ""))
	config.Gemini.ImageModel = getEnv("GEMINI_IMAGE_MODEL", "")
	config.Gemini.VideoModel = getEnv("GEMINI_VIDEO_MODEL", "")

	// Pinterest
	config.Pinterest.AccessToken = getEnv("PINTEREST_ACCESS_TOKEN", "")
	config.Pinterest.TokenFile = getEnv("PINTEREST_TOKEN_FILE", filepath.Join(config.Storage.Root, "tokens", "pinterest_token.txt"))
	config.Pinterest.BoardID = getEnv("PINTEREST_BOARD_ID", "")
	config.Pinterest.AppID = getEnv("PINTEREST_APP_ID", "")
	config.Pinterest.AppSecret = getEnv("PINTEREST_APP_SECRET", "")
	config.Pinterest.RedirectURI = getEnv("PINTEREST_REDIRECT_URI", "http://localhost:8085/")

	// Instagram
	config.Instagram.AccessToken = getEnv("INSTAGRAM_ACCESS_TOKEN", "")
	config.Instagram.UserID = getEnv("INSTAGRAM_USER_ID", "")
	config.Instagram.TokenFile = getEnv("INSTAGRAM_TOKEN_FILE", filepath.Join(config.Storage.Root, "tokens", "instagram_token.json"))
	config.Instagram.AppID = getEnv("INSTAGRAM_APP_ID", "")
	config.Instagram.AppSecret = getEnv("INSTAGRAM_APP_SECRET", "")
	config.Instagram.RedirectURI = getEnv("INSTAGRAM_REDIRECT_URI", "")

	// TikTok
	config.TikTok.AccessToken = getEnv("TIKTOK_ACCESS_TOKEN", "")
	config.TikTok.UserID = getEnv("TIKTOK_USER_ID", "")

	// YouTube
	config.YouTube.ClientID = getEnv("YOUTUBE_CLIENT_ID", "")
	config.YouTube.ClientSecret = getEnv("YOUTUBE_CLIENT_SECRET", "")
	config.YouTube.RefreshToken = getEnv("YOUTUBE_REFRESH_TOKEN", "")
	config.YouTube.RedirectURI = getEnv("YOUTUBE_REDIRECT_URI", "http://localhost:8080/")
	config.YouTube.AccessTokenFile = getEnv("YOUTUBE_ACCESS_TOKEN_FILE", filepath.Join(config.Storage.Root, "tokens", "youtube_token.txt"))

	// WooCommerce
	config.WooCommerce.APIURL = getEnv("WORDPRESS_API_URL", "")
	config.WooCommerce.Username = getEnv("WORDPRESS_USERNAME", "")
	config.WooCommerce.Password = getEnv("WORDPRESS_PASSWORD", "")
	config.WooCommerce.ConsumerKey = getEnv("WC_CONSUMER_KEY", "")
	config.WooCommerce.ConsumerSecret = getEnv("WC_CONSUMER_SECRET", "")

	// Amazon
	config.Amazon.CanopyAPIKey = getEnv("CANOPY_API_KEY", "")
	config.Amazon.StoreID = getEnv("AMAZON_STORE_ID", "")
	config.Amazon.Country = getEnv("AMAZON_COUNTRY", "US")

	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
