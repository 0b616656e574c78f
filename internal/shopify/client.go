// Package shopify holds the commerce API client and the product submission
// pipeline fed by the product worker.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mirrorlake/dreamforge/internal/errs"
	"github.com/mirrorlake/dreamforge/internal/logger"
)

const apiVersion = "2024-07"

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(shopName, adminToken string) *Client {
	return NewClientWithBaseURL(
		fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", shopName, apiVersion),
		adminToken,
	)
}

// NewClientWithBaseURL is used by tests to point the client at a local
// server.
func NewClientWithBaseURL(baseURL, adminToken string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   adminToken,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type Product struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	Tags        string    `json:"tags,omitempty"`
	Images      []Image   `json:"images,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
}

type Image struct {
	ID  int64  `json:"id,omitempty"`
	Src string `json:"src"`
}

type Variant struct {
	ID                  int64  `json:"id,omitempty"`
	Price               string `json:"price"`
	SKU                 string `json:"sku"`
	InventoryQuantity   int    `json:"inventory_quantity"`
	InventoryManagement string `json:"inventory_management"`
	InventoryItemID     int64  `json:"inventory_item_id,omitempty"`
}

func (c *Client) request(ctx context.Context, method, endpoint string, body, out any) error {
	url := c.baseURL + "/" + endpoint

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Transient(method+" "+endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Transient(method+" "+endpoint, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		logger.Error("shopify api error", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
		return errs.New(errs.KindTransient, errs.CodeThirdParty, method+" "+endpoint,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

func (c *Client) CreateProduct(ctx context.Context, product Product) (*Product, error) {
	var result struct {
		Product *Product `json:"product"`
	}

	payload := map[string]Product{"product": product}
	if err := c.request(ctx, http.MethodPost, "products.json", payload, &result); err != nil {
		return nil, err
	}
	if result.Product == nil {
		return nil, fmt.Errorf("unexpected response creating product %q", product.Title)
	}

	logger.Info("product created", "title", product.Title, "id", result.Product.ID)
	return result.Product, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var result struct {
		Product *Product `json:"product"`
	}

	endpoint := fmt.Sprintf("products/%d.json", id)
	if err := c.request(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	if result.Product == nil {
		return nil, fmt.Errorf("unexpected response retrieving product %d", id)
	}

	return result.Product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, updates Product) (*Product, error) {
	var result struct {
		Product *Product `json:"product"`
	}

	endpoint := fmt.Sprintf("products/%d.json", id)
	payload := map[string]Product{"product": updates}
	if err := c.request(ctx, http.MethodPut, endpoint, payload, &result); err != nil {
		return nil, err
	}

	logger.Info("product updated", "id", id)
	return result.Product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("products/%d.json", id)
	if err := c.request(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return err
	}

	logger.Info("product deleted", "id", id)
	return nil
}

func (c *Client) ListProducts(ctx context.Context, limit int) ([]Product, error) {
	var result struct {
		Products []Product `json:"products"`
	}

	endpoint := fmt.Sprintf("products.json?limit=%d", limit)
	if err := c.request(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}

	return result.Products, nil
}

func (c *Client) UploadProductImage(ctx context.Context, productID int64, imageURL string) (*Image, error) {
	var result struct {
		Image *Image `json:"image"`
	}

	endpoint := fmt.Sprintf("products/%d/images.json", productID)
	payload := map[string]Image{"image": {Src: imageURL}}
	if err := c.request(ctx, http.MethodPost, endpoint, payload, &result); err != nil {
		return nil, err
	}
	if result.Image == nil {
		return nil, fmt.Errorf("unexpected response uploading image to product %d", productID)
	}

	logger.Info("product image uploaded", "product_id", productID, "image_id", result.Image.ID)
	return result.Image, nil
}

func (c *Client) UpdateInventory(ctx context.Context, inventoryItemID, locationID int64, available int) error {
	payload := map[string]int64{
		"inventory_item_id": inventoryItemID,
		"location_id":       locationID,
		"available":         int64(available),
	}
	if err := c.request(ctx, http.MethodPost, "inventory_levels/set.json", payload, nil); err != nil {
		return err
	}

	logger.Info("inventory updated", "inventory_item_id", inventoryItemID, "available", available)
	return nil
}
