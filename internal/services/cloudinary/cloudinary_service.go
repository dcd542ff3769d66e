package cloudinary

import (
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/config"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

// UploadParams параметры прямой загрузки фото вещи в Cloudinary
type UploadParams struct {
	Timestamp    string `json:"timestamp"`
	Signature    string `json:"signature"`
	APIKey       string `json:"api_key"`
	CloudName    string `json:"cloud_name"`
	Folder       string `json:"folder"`
	UploadPreset string `json:"upload_preset,omitempty"`
	ItemID       string `json:"item_id"`
}

// CloudinaryService предоставляет методы для работы с Cloudinary
type CloudinaryService struct {
	cfg config.CloudinaryConfig
	now func() time.Time
}

// NewCloudinaryService создает новый экземпляр CloudinaryService
func NewCloudinaryService(cfg config.CloudinaryConfig) *CloudinaryService {
	return &CloudinaryService{cfg: cfg, now: time.Now}
}

// Sign подписывает параметры загрузки в папку <folder>/<user>/<item>
func (s *CloudinaryService) Sign(userID, itemID uuid.UUID) (*UploadParams, error) {
	if s.cfg.APISecret == "" {
		return nil, apperr.Upstream(nil, "загрузка изображений не настроена")
	}

	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	folder := path.Join(s.cfg.UploadFolder, userID.String(), itemID.String())

	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", folder)
	if s.cfg.UploadPreset != "" {
		params.Set("upload_preset", s.cfg.UploadPreset)
	}

	signature, err := api.SignParameters(params, s.cfg.APISecret)
	if err != nil {
		return nil, apperr.Upstream(err, "не удалось подписать параметры загрузки")
	}

	return &UploadParams{
		Timestamp:    timestamp,
		Signature:    signature,
		APIKey:       s.cfg.APIKey,
		CloudName:    s.cfg.CloudName,
		Folder:       folder,
		UploadPreset: s.cfg.UploadPreset,
		ItemID:       itemID.String(),
	}, nil
}

// GenerateUploadParams создаёт параметры для загрузки изображений
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	// Генерируем ID для вещи, если не передан
	itemID := uuid.New()
	if raw := c.Query("item_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return utils.ErrorResponse(c, apperr.Validation("некорректный item_id"))
		}
		itemID = parsed
	}

	params, err := s.Sign(middleware.UserID(c), itemID)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(params)
}
