package queue

import (
	"bytes"
	"encoding/json"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/go-playground/validator/v10"

	"github.com/mirrorlake/dreamforge/internal/errs"
)

var validate = validator.New()

// UploadTask carries one generated image from the command layer to the
// upload worker. ImageContent is the raw image bytes.
type UploadTask struct {
	ID           string `json:"id" validate:"required"`
	FileName     string `json:"file_name" validate:"required"`
	ImageContent []byte `json:"image_content" validate:"required"`
	SessionID    string `json:"session_id" validate:"required"`
}

// Validate checks required fields and that ImageContent decodes as a
// structurally valid image, not merely non-empty bytes.
func (t *UploadTask) Validate() error {
	if err := validate.Struct(t); err != nil {
		return errs.Validation("upload task", err)
	}
	if !IsValidImage(t.ImageContent) {
		return errs.Validationf("upload task", "image_content is not a valid image (task %s)", t.ID)
	}
	return nil
}

// ProductTask asks the product worker to publish one stored image as a
// commerce product.
type ProductTask struct {
	ID       string      `json:"id" validate:"required"`
	FileName string      `json:"file_name" validate:"required"`
	Product  ProductData `json:"product_data" validate:"required"`
	UserID   string      `json:"user_id" validate:"required"`
}

func (t *ProductTask) Validate() error {
	if err := validate.Struct(t); err != nil {
		return errs.Validation("product task", err)
	}
	return nil
}

// ProductData is the caller-supplied portion of a product submission. Absent
// pricing fields are synthesized by the pipeline from configured defaults.
type ProductData struct {
	Title             string    `json:"title" validate:"required"`
	Description       string    `json:"description"`
	Vendor            string    `json:"vendor"`
	ProductType       string    `json:"product_type"`
	Tags              []string  `json:"tags"`
	Price             string    `json:"price"`
	SKU               string    `json:"sku"`
	InventoryQuantity int       `json:"inventory_quantity"`
	Variants          []Variant `json:"variants"`
}

type Variant struct {
	Price               string `json:"price"`
	SKU                 string `json:"sku"`
	InventoryQuantity   int    `json:"inventory_quantity"`
	InventoryManagement string `json:"inventory_management"`
}

func DecodeUploadTask(data []byte) (*UploadTask, error) {
	var task UploadTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, errs.Validation("decode upload task", err)
	}
	return &task, nil
}

func DecodeProductTask(data []byte) (*ProductTask, error) {
	var task ProductTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, errs.Validation("decode product task", err)
	}
	return &task, nil
}

// IsValidImage reports whether data begins with a decodable PNG, JPEG, or GIF
// header.
func IsValidImage(data []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil
}
