package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/platform/httpx"
	"github.com/dkotama/jastip-api/internal/platform/pagination"
	"github.com/dkotama/jastip-api/internal/services"
)

const maxPhotoUploadBytes = 5 << 20

type infoNoteRequest struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type createItemRequest struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Category         string            `json:"category"`
	Photos           []string          `json:"photos"`
	BasePriceYen     int64             `json:"basePriceYen"`
	SellingPriceRp   int64             `json:"sellingPriceRp"`
	WeightGrams      int64             `json:"weightGrams"`
	MaxOrders        int64             `json:"maxOrders"`
	IsAvailable      bool              `json:"isAvailable"`
	IsDraft          bool              `json:"isDraft"`
	WithoutBoxNote   bool              `json:"withoutBoxNote"`
	IsLimitedEdition bool              `json:"isLimitedEdition"`
	IsPreorder       bool              `json:"isPreorder"`
	IsFragile        bool              `json:"isFragile"`
	InfoNotes        []infoNoteRequest `json:"infoNotes"`
}

// CreateItem adds a catalog item. The rupiah base price is derived from the
// exchange rate; the selling price is stored exactly as submitted.
func (h *AdminHandlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "request body must be valid JSON")
		return
	}

	item, err := h.catalog.CreateItem(r.Context(), services.CreateItemCommand{
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		Photos:           req.Photos,
		BasePriceYen:     req.BasePriceYen,
		SellingPriceRp:   req.SellingPriceRp,
		WeightGrams:      req.WeightGrams,
		MaxOrders:        req.MaxOrders,
		IsAvailable:      req.IsAvailable,
		IsDraft:          req.IsDraft,
		WithoutBoxNote:   req.WithoutBoxNote,
		IsLimitedEdition: req.IsLimitedEdition,
		IsPreorder:       req.IsPreorder,
		IsFragile:        req.IsFragile,
		InfoNotes:        toInfoNotes(req.InfoNotes),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusCreated, toItemResponse(item))
}

type updateItemRequest struct {
	Name             *string            `json:"name"`
	Description      *string            `json:"description"`
	Category         *string            `json:"category"`
	Photos           *[]string          `json:"photos"`
	BasePriceYen     *int64             `json:"basePriceYen"`
	SellingPriceRp   *int64             `json:"sellingPriceRp"`
	WeightGrams      *int64             `json:"weightGrams"`
	MaxOrders        *int64             `json:"maxOrders"`
	IsAvailable      *bool              `json:"isAvailable"`
	IsDraft          *bool              `json:"isDraft"`
	WithoutBoxNote   *bool              `json:"withoutBoxNote"`
	IsLimitedEdition *bool              `json:"isLimitedEdition"`
	IsPreorder       *bool              `json:"isPreorder"`
	IsFragile        *bool              `json:"isFragile"`
	InfoNotes        *[]infoNoteRequest `json:"infoNotes"`
}

// UpdateItem patches a catalog item. A yen price change recomputes the rupiah
// base price; the selling price changes only when sent.
func (h *AdminHandlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "request body must be valid JSON")
		return
	}

	cmd := services.UpdateItemCommand{
		ItemID:           chi.URLParam(r, "itemID"),
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		Photos:           req.Photos,
		BasePriceYen:     req.BasePriceYen,
		SellingPriceRp:   req.SellingPriceRp,
		WeightGrams:      req.WeightGrams,
		MaxOrders:        req.MaxOrders,
		IsAvailable:      req.IsAvailable,
		IsDraft:          req.IsDraft,
		WithoutBoxNote:   req.WithoutBoxNote,
		IsLimitedEdition: req.IsLimitedEdition,
		IsPreorder:       req.IsPreorder,
		IsFragile:        req.IsFragile,
	}
	if req.InfoNotes != nil {
		notes := toInfoNotes(*req.InfoNotes)
		cmd.InfoNotes = &notes
	}

	item, err := h.catalog.UpdateItem(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toItemResponse(item))
}

// ListItems returns the whole catalog, drafts and hidden items included.
func (h *AdminHandlers) ListItems(w http.ResponseWriter, r *http.Request) {
	query := services.CatalogQuery{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}

	page, err := pagination.FromRequest(r, catalogPageOptions)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	query.Limit = page.Limit
	query.Offset = page.Offset

	items, err := h.catalog.ListItems(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toItemResponses(items))
}

// GetItem returns one catalog item regardless of publication state.
func (h *AdminHandlers) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), chi.URLParam(r, "itemID"), false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toItemResponse(item))
}

// DeleteItem hides a catalog item. With ?force=true the row is removed
// instead, which is refused while the item still has active orders.
func (h *AdminHandlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	if err := h.catalog.DeleteItem(r.Context(), chi.URLParam(r, "itemID"), force); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"deleted": true})
}

// UploadPhoto stores a catalog photo. The photo arrives as a multipart form
// under the "file" field; a raw body with an image content type also works.
func (h *AdminHandlers) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUploadBytes+1)

	cmd, cleanup, err := photoUploadCommand(r)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	defer cleanup()

	upload, err := h.assets.UploadPhoto(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteData(w, http.StatusCreated, map[string]any{
		"key": upload.Key,
		"url": upload.URL,
	})
}

// photoUploadCommand extracts the photo payload from either a multipart form
// or the raw request body.
func photoUploadCommand(r *http.Request) (services.UploadPhotoCommand, func(), error) {
	noop := func() {}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return services.UploadPhotoCommand{}, noop, errors.New("request must carry a Content-Type header")
	}
	if mediaType != "multipart/form-data" {
		return services.UploadPhotoCommand{
			ContentType: mediaType,
			Size:        r.ContentLength,
			Body:        r.Body,
		}, noop, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return services.UploadPhotoCommand{}, noop, errors.New(`multipart form must carry a "file" field`)
	}
	return services.UploadPhotoCommand{
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, func() { file.Close() }, nil
}

func toInfoNotes(notes []infoNoteRequest) []domain.InfoNote {
	if notes == nil {
		return nil
	}
	converted := make([]domain.InfoNote, 0, len(notes))
	for _, note := range notes {
		converted = append(converted, domain.InfoNote{
			Type: domain.InfoNoteType(note.Type),
			Text: note.Text,
		})
	}
	return converted
}
