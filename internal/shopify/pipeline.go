package shopify

import (
	"context"
	"strings"

	"github.com/mirrorlake/dreamforge/internal/config"
	"github.com/mirrorlake/dreamforge/internal/errs"
	"github.com/mirrorlake/dreamforge/internal/logger"
	"github.com/mirrorlake/dreamforge/internal/queue"
)

// ImageService is the slice of the media handler the pipeline needs.
type ImageService interface {
	Fetch(ctx context.Context, fileName string) ([]byte, error)
	Tag(ctx context.Context, image []byte) []string
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
}

// Commerce is the slice of the commerce client the pipeline needs.
type Commerce interface {
	CreateProduct(ctx context.Context, product Product) (*Product, error)
}

// Pipeline turns one queued product task into a live product. Stages run
// sequentially and fail fast: the commerce call only happens after every
// prior stage succeeded, so no partial submission occurs. Nothing is retried
// at this layer.
type Pipeline struct {
	commerce Commerce
	images   ImageService
	defaults config.ProductDefaults
}

func NewPipeline(commerce Commerce, images ImageService, defaults config.ProductDefaults) *Pipeline {
	return &Pipeline{
		commerce: commerce,
		images:   images,
		defaults: defaults,
	}
}

// Process implements worker.Pipeline.
func (p *Pipeline) Process(ctx context.Context, task *queue.ProductTask) error {
	if err := task.Validate(); err != nil {
		logger.Error("product task validation failed", "task_id", task.ID, "error", err)
		return err
	}

	content, err := p.images.Fetch(ctx, task.FileName)
	if err != nil {
		return err
	}

	if !queue.IsValidImage(content) {
		return errs.Validationf("product task", "stored content for %s is not a valid image", task.FileName)
	}

	tags := p.images.Tag(ctx, content)

	imageURL, err := p.images.Upload(ctx, task.FileName, content)
	if err != nil {
		return err
	}

	product := p.buildProduct(task.Product, tags, imageURL)

	created, err := p.commerce.CreateProduct(ctx, product)
	if err != nil {
		logger.Error("product creation failed", "task_id", task.ID, "user_id", task.UserID, "error", err)
		return err
	}

	logger.Info("product published", "task_id", task.ID, "user_id", task.UserID,
		"product_id", created.ID, "title", created.Title)
	return nil
}

// buildProduct merges the caller-supplied fields with configured defaults,
// the vision tags, and the uploaded image URL. A variant is synthesized when
// the task carries none.
func (p *Pipeline) buildProduct(data queue.ProductData, tags []string, imageURL string) Product {
	allTags := append(append([]string{}, data.Tags...), tags...)

	vendor := data.Vendor
	if vendor == "" {
		vendor = p.defaults.Vendor
	}

	productType := data.ProductType
	if productType == "" {
		productType = p.defaults.ProductType
	}

	variants := make([]Variant, 0, len(data.Variants))
	for _, v := range data.Variants {
		variants = append(variants, Variant{
			Price:               v.Price,
			SKU:                 v.SKU,
			InventoryQuantity:   v.InventoryQuantity,
			InventoryManagement: v.InventoryManagement,
		})
	}
	if len(variants) == 0 {
		variants = []Variant{synthesizeVariant(data, p.defaults)}
	}

	return Product{
		Title:       data.Title,
		BodyHTML:    data.Description,
		Vendor:      vendor,
		ProductType: productType,
		Tags:        strings.Join(allTags, ", "),
		Images:      []Image{{Src: imageURL}},
		Variants:    variants,
	}
}

func synthesizeVariant(data queue.ProductData, defaults config.ProductDefaults) Variant {
	price := data.Price
	if price == "" {
		price = defaults.Price
	}

	sku := data.SKU
	if sku == "" {
		sku = defaults.SKU
	}

	qty := data.InventoryQuantity
	if qty == 0 {
		qty = defaults.InventoryQuantity
	}

	return Variant{
		Price:               price,
		SKU:                 sku,
		InventoryQuantity:   qty,
		InventoryManagement: "shopify",
	}
}
