package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dkotama/jastip-api/internal/platform/auth"
	"github.com/dkotama/jastip-api/internal/services"
)

type stubSettingsService struct {
	settings       services.Settings
	publicConfig   services.PublicConfig
	getErr         error
	updateErr      error
	verifyErr      error
	passwordHash   string
	lastUpdate     *services.UpdateSettingsCommand
	lastVerifiedPw string
}

func (s *stubSettingsService) Get(context.Context) (services.Settings, error) {
	return s.settings, s.getErr
}

func (s *stubSettingsService) Update(_ context.Context, cmd services.UpdateSettingsCommand) (services.Settings, error) {
	s.lastUpdate = &cmd
	return s.settings, s.updateErr
}

func (s *stubSettingsService) PublicConfig(context.Context) (services.PublicConfig, error) {
	return s.publicConfig, s.getErr
}

func (s *stubSettingsService) VerifyAdminPassword(_ context.Context, password string) error {
	s.lastVerifiedPw = password
	return s.verifyErr
}

func (s *stubSettingsService) AdminPasswordHash(context.Context) (string, error) {
	return s.passwordHash, nil
}

type stubCatalogService struct {
	item       services.CatalogItem
	items      []services.CatalogItem
	viewCount  int64
	err        error
	lastQuery  *services.CatalogQuery
	lastCreate *services.CreateItemCommand
	lastUpdate *services.UpdateItemCommand
	deletedID    string
	deletedForce bool
	viewedID     string
}

func (s *stubCatalogService) CreateItem(_ context.Context, cmd services.CreateItemCommand) (services.CatalogItem, error) {
	s.lastCreate = &cmd
	return s.item, s.err
}

func (s *stubCatalogService) UpdateItem(_ context.Context, cmd services.UpdateItemCommand) (services.CatalogItem, error) {
	s.lastUpdate = &cmd
	return s.item, s.err
}

func (s *stubCatalogService) GetItem(_ context.Context, itemID string, storefront bool) (services.CatalogItem, error) {
	return s.item, s.err
}

func (s *stubCatalogService) ListItems(_ context.Context, query services.CatalogQuery) ([]services.CatalogItem, error) {
	s.lastQuery = &query
	return s.items, s.err
}

func (s *stubCatalogService) DeleteItem(_ context.Context, itemID string, force bool) error {
	s.deletedID = itemID
	s.deletedForce = force
	return s.err
}

func (s *stubCatalogService) RecordView(_ context.Context, itemID string) (int64, error) {
	s.viewedID = itemID
	return s.viewCount, s.err
}

type stubTokenService struct {
	token      services.InviteToken
	listings   []services.InviteTokenListing
	err        error
	lastCreate *services.CreateTokenCommand
	revokedID  string
	revokedBy  string
}

func (s *stubTokenService) Create(_ context.Context, cmd services.CreateTokenCommand) (services.InviteToken, error) {
	s.lastCreate = &cmd
	return s.token, s.err
}

func (s *stubTokenService) List(context.Context) ([]services.InviteTokenListing, error) {
	return s.listings, s.err
}

func (s *stubTokenService) Revoke(_ context.Context, tokenID, revokedBy string) error {
	s.revokedID = tokenID
	s.revokedBy = revokedBy
	return s.err
}

func (s *stubTokenService) Validate(context.Context, string) (services.InviteToken, error) {
	return s.token, s.err
}

type stubUserService struct {
	user       services.User
	resolveErr error
	redeemErr  error
	getErr     error
	revoked    bool
	lastSignIn *services.GoogleSignInCommand
	lastRedeem *services.RedeemInviteCommand
}

func (s *stubUserService) ResolveGoogleUser(_ context.Context, cmd services.GoogleSignInCommand) (services.User, error) {
	s.lastSignIn = &cmd
	return s.user, s.resolveErr
}

func (s *stubUserService) RedeemInvite(_ context.Context, cmd services.RedeemInviteCommand) (services.User, error) {
	s.lastRedeem = &cmd
	return s.user, s.redeemErr
}

func (s *stubUserService) GetUser(context.Context, string) (services.User, error) {
	return s.user, s.getErr
}

func (s *stubUserService) UserRevoked(context.Context, string) (bool, error) {
	return s.revoked, nil
}

type stubOrderService struct {
	order       services.Order
	orders      []services.Order
	err         error
	lastPlace   *services.PlaceOrderCommand
	lastQuery   *services.OrderQuery
	lastStatus  *services.OrderStatusCommand
	lastDetails *services.OrderDetailsCommand
	lastGetID   string
	lastGetUser string
}

func (s *stubOrderService) PlaceOrder(_ context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
	s.lastPlace = &cmd
	return s.order, s.err
}

func (s *stubOrderService) GetOrder(_ context.Context, orderID, requesterID string) (services.Order, error) {
	s.lastGetID = orderID
	s.lastGetUser = requesterID
	return s.order, s.err
}

func (s *stubOrderService) ListOrders(_ context.Context, query services.OrderQuery) ([]services.Order, error) {
	s.lastQuery = &query
	return s.orders, s.err
}

func (s *stubOrderService) UpdateStatus(_ context.Context, cmd services.OrderStatusCommand) (services.Order, error) {
	s.lastStatus = &cmd
	return s.order, s.err
}

func (s *stubOrderService) UpdateDetails(_ context.Context, cmd services.OrderDetailsCommand) (services.Order, error) {
	s.lastDetails = &cmd
	return s.order, s.err
}

type stubAssetService struct {
	upload     services.PhotoUpload
	photo      services.Photo
	uploadErr  error
	getErr     error
	lastUpload *services.UploadPhotoCommand
	lastKey    string
	uploaded   []byte
}

func (s *stubAssetService) UploadPhoto(_ context.Context, cmd services.UploadPhotoCommand) (services.PhotoUpload, error) {
	s.lastUpload = &cmd
	if cmd.Body != nil {
		s.uploaded, _ = io.ReadAll(cmd.Body)
	}
	return s.upload, s.uploadErr
}

func (s *stubAssetService) GetPhoto(_ context.Context, key string) (services.Photo, error) {
	s.lastKey = key
	return s.photo, s.getErr
}

type stubGoogleClient struct {
	authURL     string
	authErr     error
	profile     auth.GoogleProfile
	exchangeErr error
	lastState   auth.OAuthState
	lastCode    string
}

func (s *stubGoogleClient) AuthURL(state auth.OAuthState) (string, error) {
	s.lastState = state
	if s.authURL == "" {
		encoded, err := auth.EncodeState(state)
		if err != nil {
			return "", err
		}
		return "https://accounts.example.com/auth?state=" + encoded, s.authErr
	}
	return s.authURL, s.authErr
}

func (s *stubGoogleClient) Exchange(_ context.Context, code string) (auth.GoogleProfile, error) {
	s.lastCode = code
	return s.profile, s.exchangeErr
}

// identityMiddleware injects a fixed identity, standing in for RequireSession.
func identityMiddleware(identity auth.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), &identity)))
		})
	}
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return body
}

func dataField(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decodeEnvelope(t, rr)
	if body["success"] != true {
		t.Fatalf("expected success envelope, got %v", body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T", body["data"])
	}
	return data
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal request payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}
