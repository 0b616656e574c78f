package shopify

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorlake/dreamforge/internal/config"
	"github.com/mirrorlake/dreamforge/internal/errs"
	"github.com/mirrorlake/dreamforge/internal/queue"
)

type fakeImages struct {
	content   []byte
	fetchErr  error
	uploadErr error
	tags      []string
	uploaded  []string
}

func (f *fakeImages) Fetch(ctx context.Context, fileName string) ([]byte, error) {
	return f.content, f.fetchErr
}

func (f *fakeImages) Tag(ctx context.Context, image []byte) []string {
	return f.tags
}

func (f *fakeImages) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploaded = append(f.uploaded, fileName)
	return "https://cdn/" + fileName, nil
}

type fakeCommerce struct {
	created []Product
	err     error
}

func (f *fakeCommerce) CreateProduct(ctx context.Context, product Product) (*Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	created := product
	created.ID = int64(len(f.created) + 1)
	f.created = append(f.created, product)
	return &created, nil
}

func testDefaults() config.ProductDefaults {
	return config.ProductDefaults{
		Vendor:            "default",
		Price:             "0.00",
		SKU:               "default-sku",
		InventoryQuantity: 1,
	}
}

func validImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func testTask() *queue.ProductTask {
	return &queue.ProductTask{
		ID:       "p1",
		FileName: "DREAM_x.jpg",
		UserID:   "u1",
		Product: queue.ProductData{
			Title:       "A dream",
			Description: "From a prompt",
			Tags:        []string{"art"},
		},
	}
}

func TestPipelineProcess(t *testing.T) {
	images := &fakeImages{content: validImage(t), tags: []string{"fox", "sunset"}}
	commerce := &fakeCommerce{}
	p := NewPipeline(commerce, images, testDefaults())

	err := p.Process(context.Background(), testTask())
	require.NoError(t, err)
	require.Len(t, commerce.created, 1)

	product := commerce.created[0]
	assert.Equal(t, "A dream", product.Title)
	assert.Equal(t, "From a prompt", product.BodyHTML)
	assert.Equal(t, "default", product.Vendor)
	assert.Equal(t, "art, fox, sunset", product.Tags)
	require.Len(t, product.Images, 1)
	assert.Equal(t, "https://cdn/DREAM_x.jpg", product.Images[0].Src)

	// no caller variant, so one is synthesized from defaults
	require.Len(t, product.Variants, 1)
	assert.Equal(t, "0.00", product.Variants[0].Price)
	assert.Equal(t, "default-sku", product.Variants[0].SKU)
	assert.Equal(t, 1, product.Variants[0].InventoryQuantity)
	assert.Equal(t, "shopify", product.Variants[0].InventoryManagement)
}

func TestPipelineKeepsCallerVariants(t *testing.T) {
	images := &fakeImages{content: validImage(t)}
	commerce := &fakeCommerce{}
	p := NewPipeline(commerce, images, testDefaults())

	task := testTask()
	task.Product.Variants = []queue.Variant{
		{Price: "19.99", SKU: "custom-1", InventoryQuantity: 5, InventoryManagement: "shopify"},
	}

	require.NoError(t, p.Process(context.Background(), task))
	require.Len(t, commerce.created, 1)
	require.Len(t, commerce.created[0].Variants, 1)
	assert.Equal(t, "19.99", commerce.created[0].Variants[0].Price)
	assert.Equal(t, "custom-1", commerce.created[0].Variants[0].SKU)
}

func TestPipelineRejectsInvalidTask(t *testing.T) {
	images := &fakeImages{content: validImage(t)}
	commerce := &fakeCommerce{}
	p := NewPipeline(commerce, images, testDefaults())

	task := testTask()
	task.Product.Title = ""

	err := p.Process(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Empty(t, commerce.created, "invalid task must not reach commerce")
}

func TestPipelineFailsFastOnFetch(t *testing.T) {
	images := &fakeImages{fetchErr: errors.New("object missing")}
	commerce := &fakeCommerce{}
	p := NewPipeline(commerce, images, testDefaults())

	require.Error(t, p.Process(context.Background(), testTask()))
	assert.Empty(t, commerce.created)
	assert.Empty(t, images.uploaded, "upload must not run after a fetch failure")
}

func TestPipelineRejectsCorruptStoredImage(t *testing.T) {
	images := &fakeImages{content: []byte("corrupt")}
	commerce := &fakeCommerce{}
	p := NewPipeline(commerce, images, testDefaults())

	err := p.Process(context.Background(), testTask())
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Empty(t, commerce.created)
}

func TestPipelineFailsFastOnUpload(t *testing.T) {
	images := &fakeImages{content: validImage(t), uploadErr: errors.New("storage down")}
	commerce := &fakeCommerce{}
	p := NewPipeline(commerce, images, testDefaults())

	require.Error(t, p.Process(context.Background(), testTask()))
	assert.Empty(t, commerce.created)
}

func TestPipelineSurfacesCommerceError(t *testing.T) {
	images := &fakeImages{content: validImage(t)}
	commerce := &fakeCommerce{err: errors.New("rate limited")}
	p := NewPipeline(commerce, images, testDefaults())

	require.Error(t, p.Process(context.Background(), testTask()))
}

func TestSynthesizeVariantPrefersTaskFields(t *testing.T) {
	v := synthesizeVariant(queue.ProductData{Price: "5.00", SKU: "sku-5", InventoryQuantity: 3}, testDefaults())
	assert.Equal(t, "5.00", v.Price)
	assert.Equal(t, "sku-5", v.SKU)
	assert.Equal(t, 3, v.InventoryQuantity)
	assert.Equal(t, "shopify", v.InventoryManagement)
}
