package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oklog/ulid/v2"

	pstorage "github.com/dkotama/jastip-api/internal/platform/storage"
)

var (
	// ErrAssetInvalidInput indicates the caller provided an invalid upload.
	ErrAssetInvalidInput = errors.New("asset: invalid input")
	// ErrAssetTooLarge indicates the upload exceeds the configured size limit.
	ErrAssetTooLarge = errors.New("asset: too large")
	// ErrAssetUnsupportedType indicates the upload content type is not allowed.
	ErrAssetUnsupportedType = errors.New("asset: unsupported content type")
	// ErrAssetNotFound indicates the requested photo does not exist.
	ErrAssetNotFound = errors.New("asset: not found")
)

// PhotoStore abstracts the object storage backing photo uploads.
type PhotoStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Get(ctx context.Context, key string) (*pstorage.Object, error)
}

// AssetServiceDeps bundles collaborators required to construct an asset service.
type AssetServiceDeps struct {
	Store        PhotoStore
	MaxBytes     int64
	ContentTypes []string
	IDGenerator  func() string
}

type assetService struct {
	store        PhotoStore
	maxBytes     int64
	contentTypes map[string]struct{}
	idGen        func() string
}

var _ AssetService = (*assetService)(nil)

// defaultMaxPhotoBytes caps catalog photo uploads at 5 MiB.
const defaultMaxPhotoBytes = int64(5 << 20)

var defaultPhotoContentTypes = []string{"image/jpeg", "image/png", "image/webp"}

// NewAssetService constructs a service storing and serving catalog photos.
func NewAssetService(deps AssetServiceDeps) (AssetService, error) {
	if deps.Store == nil {
		return nil, errors.New("asset service: photo store is required")
	}

	maxBytes := deps.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxPhotoBytes
	}
	types := deps.ContentTypes
	if len(types) == 0 {
		types = defaultPhotoContentTypes
	}
	allowed := make(map[string]struct{}, len(types))
	for _, contentType := range types {
		allowed[strings.ToLower(strings.TrimSpace(contentType))] = struct{}{}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &assetService{
		store:        deps.Store,
		maxBytes:     maxBytes,
		contentTypes: allowed,
		idGen:        idGen,
	}, nil
}

func (s *assetService) UploadPhoto(ctx context.Context, cmd UploadPhotoCommand) (PhotoUpload, error) {
	if cmd.Body == nil {
		return PhotoUpload{}, fmt.Errorf("%w: body is required", ErrAssetInvalidInput)
	}
	contentType := strings.ToLower(strings.TrimSpace(cmd.ContentType))
	if _, ok := s.contentTypes[contentType]; !ok {
		return PhotoUpload{}, fmt.Errorf("%w: %q", ErrAssetUnsupportedType, cmd.ContentType)
	}
	if cmd.Size > s.maxBytes {
		return PhotoUpload{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrAssetTooLarge, cmd.Size, s.maxBytes)
	}

	key, err := pstorage.UploadKey(s.idGen(), contentType)
	if err != nil {
		return PhotoUpload{}, fmt.Errorf("%w: %v", ErrAssetInvalidInput, err)
	}

	// Guard against callers that understate Size: one byte over the limit
	// aborts the upload.
	body := io.LimitReader(cmd.Body, s.maxBytes+1)
	buffered, err := io.ReadAll(body)
	if err != nil {
		return PhotoUpload{}, fmt.Errorf("asset service: reading upload: %w", err)
	}
	if int64(len(buffered)) > s.maxBytes {
		return PhotoUpload{}, fmt.Errorf("%w: upload exceeds limit of %d bytes", ErrAssetTooLarge, s.maxBytes)
	}

	if err := s.store.Put(ctx, key, contentType, bytes.NewReader(buffered)); err != nil {
		return PhotoUpload{}, err
	}
	return PhotoUpload{Key: key, URL: "/" + key}, nil
}

func (s *assetService) GetPhoto(ctx context.Context, key string) (Photo, error) {
	parsed, err := pstorage.ParseUploadKey(key)
	if err != nil {
		return Photo{}, fmt.Errorf("%w: %v", ErrAssetInvalidInput, err)
	}

	object, err := s.store.Get(ctx, parsed)
	if errors.Is(err, pstorage.ErrObjectNotFound) {
		return Photo{}, ErrAssetNotFound
	}
	if err != nil {
		return Photo{}, err
	}
	return Photo{
		Body:          object.Body,
		ContentType:   object.ContentType,
		ContentLength: object.ContentLength,
	}, nil
}
