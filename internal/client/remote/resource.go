package remote

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
)

// IdempotencyHeader lets the server collapse replays of the same create.
const IdempotencyHeader = "Idempotency-Key"

// Resource is a REST collection at path ("/client/") exposing list, create,
// update and delete.
type Resource[T models.Entity[T]] struct {
	c      *Client
	path   string
	toWire func(T) any
}

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.c.getJSON(ctx, r.path, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *Resource[T]) Get(ctx context.Context, id models.ID) (T, error) {
	var item T
	err := r.c.getJSON(ctx, r.path+id.String(), &item)
	return item, err
}

// Create posts item; key, when set, is sent as the idempotency key.
func (r *Resource[T]) Create(ctx context.Context, item T, key string) (T, error) {
	var out T
	err := r.c.sendJSON(ctx, http.MethodPost, r.path, r.toWire(item), idempotency(key), &out)
	return out, err
}

func (r *Resource[T]) Update(ctx context.Context, id models.ID, item T) (T, error) {
	var out T
	err := r.c.sendJSON(ctx, http.MethodPut, r.path+id.String(), r.toWire(item), nil, &out)
	return out, err
}

func (r *Resource[T]) Delete(ctx context.Context, id models.ID) error {
	_, err := r.c.send(ctx, request{method: http.MethodDelete, path: r.path + id.String()})
	return err
}

func idempotency(key string) http.Header {
	if key == "" {
		return nil
	}
	h := http.Header{}
	h.Set(IdempotencyHeader, key)
	return h
}

func identity[T any](v T) any { return v }

func (c *Client) Clients() *Resource[models.Client] {
	return &Resource[models.Client]{c: c, path: "/client/", toWire: identity[models.Client]}
}

func (c *Client) Orders() *Resource[models.Order] {
	return &Resource[models.Order]{c: c, path: "/order/", toWire: func(o models.Order) any { return o.Recalculate() }}
}

func (c *Client) Products() *Resource[models.Product] {
	return &Resource[models.Product]{c: c, path: "/product/", toWire: productWire}
}

// productPayload is what the server accepts; the derived image stays local.
type productPayload struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Price       models.Money `json:"price"`
	Photo       string       `json:"photo,omitempty"`
}

func productWire(p models.Product) any {
	return productPayload{Title: p.Title, Description: p.Description, Price: p.Price, Photo: p.Photo}
}

// Upload is a photo file attached to a product create.
type Upload struct {
	Filename string
	Data     []byte
}

// CreateProductWithPhoto posts the product as multipart form data with the
// photo attached; the server stores the file and returns its reference.
func (c *Client) CreateProductWithPhoto(ctx context.Context, p models.Product, up Upload, key string) (models.Product, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":       p.Title,
		"description": p.Description,
		"price":       strconv.FormatFloat(float64(p.Price), 'f', -1, 64),
	}
	for _, k := range []string{"title", "description", "price"} {
		if err := w.WriteField(k, fields[k]); err != nil {
			return models.Product{}, fmt.Errorf("failed to build form: %w", err)
		}
	}
	fw, err := w.CreateFormFile("photo", up.Filename)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := fw.Write(up.Data); err != nil {
		return models.Product{}, fmt.Errorf("failed to build form: %w", err)
	}
	if err := w.Close(); err != nil {
		return models.Product{}, fmt.Errorf("failed to build form: %w", err)
	}

	resp, err := c.send(ctx, request{
		method:      http.MethodPost,
		path:        "/product/",
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
		header:      idempotency(key),
	})
	if err != nil {
		return models.Product{}, err
	}
	var out models.Product
	if err := decodeJSON(resp.body, &out); err != nil {
		return models.Product{}, err
	}
	return out, nil
}

// ProductPhoto downloads the photo stored under ref.
func (c *Client) ProductPhoto(ctx context.Context, ref string) ([]byte, string, error) {
	resp, err := c.get(ctx, "/product/photo/"+url.PathEscape(ref), !c.HasCredential())
	if err != nil {
		return nil, "", err
	}
	return resp.body, resp.contentType, nil
}

// Me returns the profile of the signed-in user.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.getJSON(ctx, "/user/me", &u)
	return u, err
}
