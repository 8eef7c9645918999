package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"geohunt/internal/middleware"
	"geohunt/internal/model"
	"geohunt/internal/service"
	"geohunt/pkg/auth"
	"geohunt/pkg/credential"
	"geohunt/pkg/geo"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	participantID int64 = 2002
	adminID       int64 = 1001
	merchantKey         = "merchant-secret"
)

type testServer struct {
	router       *gin.Engine
	catalog      *mockCatalogService
	hunts        *mockHuntService
	redemptions  *mockRedemptionService
	merchantAuth *auth.MerchantAuth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		router:       gin.New(),
		catalog:      new(mockCatalogService),
		hunts:        new(mockHuntService),
		redemptions:  new(mockRedemptionService),
		merchantAuth: auth.NewMerchantAuth(merchantKey, "geohunt", time.Hour),
	}

	telegramAuth := auth.NewTelegramAuth("", true)
	authz := middleware.NewAuthorization([]int64{adminID})

	v1 := s.router.Group("/api/v1")
	NewHuntRoutes(v1, s.catalog, s.hunts, telegramAuth, authz)
	NewAdminRoutes(v1, s.catalog, telegramAuth, authz)
	NewMerchantRoutes(v1, s.redemptions, s.merchantAuth)

	return s
}

func telegramHeader(id int64) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("user", fmt.Sprintf(`{"id":%d,"username":"player"}`, id))
	return "Telegram " + values.Encode()
}

func (s *testServer) do(t *testing.T, method, path, authorization string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHuntRoutes_RequireTelegramAuth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/hunts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/hunts", "Bearer abc", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHuntRoutes_ListHunts(t *testing.T) {
	tests := []struct {
		name       string
		user       int64
		query      string
		activeOnly bool
	}{
		{name: "participant", user: participantID, query: "", activeOnly: true},
		{name: "participant cannot see inactive", user: participantID, query: "?all=true", activeOnly: true},
		{name: "admin default", user: adminID, query: "", activeOnly: true},
		{name: "admin all", user: adminID, query: "?all=true", activeOnly: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.catalog.On("ListHunts", mock.Anything, tt.activeOnly).
				Return([]*model.Hunt{{HuntID: uuid.New(), Name: "Old Town", IsActive: true, ClueCount: 4}}, nil)

			w := s.do(t, http.MethodGet, "/api/v1/hunts"+tt.query, telegramHeader(tt.user), nil)

			require.Equal(t, http.StatusOK, w.Code)
			var out []map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			require.Len(t, out, 1)
			assert.Equal(t, 4.0, out[0]["total_clues"])
			s.catalog.AssertExpectations(t)
		})
	}
}

func TestHuntRoutes_GetHunt(t *testing.T) {
	huntID := uuid.New()
	path := "/api/v1/hunts/" + huntID.String()

	t.Run("answers withheld for participants", func(t *testing.T) {
		s := newTestServer(t)
		s.catalog.On("GetHunt", mock.Anything, huntID, false).Return(&model.Hunt{
			HuntID:   huntID,
			Name:     "Old Town",
			IsActive: true,
			Clues:    []*model.Clue{{ClueID: uuid.New(), HuntID: huntID, ClueNumber: 1, ClueText: "text"}},
		}, nil)

		w := s.do(t, http.MethodGet, path, telegramHeader(participantID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		clues := body["clues"].([]any)
		require.Len(t, clues, 1)
		assert.NotContains(t, clues[0].(map[string]any), "answer")
	})

	t.Run("admin sees answers and inactive hunts", func(t *testing.T) {
		s := newTestServer(t)
		s.catalog.On("GetHunt", mock.Anything, huntID, true).Return(&model.Hunt{
			HuntID: huntID,
			Name:   "Draft",
			Clues:  []*model.Clue{{ClueID: uuid.New(), HuntID: huntID, ClueNumber: 1, Answer: "lighthouse"}},
		}, nil)

		w := s.do(t, http.MethodGet, path, telegramHeader(adminID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		clue := decodeBody(t, w)["clues"].([]any)[0].(map[string]any)
		assert.Equal(t, "lighthouse", clue["answer"])
	})

	t.Run("inactive hunt hidden from participants", func(t *testing.T) {
		s := newTestServer(t)
		s.catalog.On("GetHunt", mock.Anything, huntID, false).Return(&model.Hunt{HuntID: huntID}, nil)

		w := s.do(t, http.MethodGet, path, telegramHeader(participantID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodGet, "/api/v1/hunts/not-a-uuid", telegramHeader(participantID), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHuntRoutes_SolveClue(t *testing.T) {
	huntID := uuid.New()
	path := "/api/v1/hunts/" + huntID.String() + "/solve"
	body := gin.H{"answer": "Lighthouse", "user_latitude": 36.0, "user_longitude": 14.2}
	sub := service.Submission{Answer: "Lighthouse", Latitude: 36.0, Longitude: 14.2}

	tests := []struct {
		name       string
		result     *model.SolveResult
		err        error
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name: "advances to next clue",
			result: &model.SolveResult{
				Progress: &model.Progress{HuntID: huntID, UserTelegramID: participantID, CurrentClueNumber: 2},
				NextClue: &model.Clue{ClueID: uuid.New(), HuntID: huntID, ClueNumber: 2, ClueText: "Bells ring here"},
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["correct"])
				assert.Equal(t, false, body["completed"])
				assert.Equal(t, "Bells ring here", body["next_clue"].(map[string]any)["clue_text"])
			},
		},
		{
			name:       "outside geofence",
			err:        &service.GeofenceError{DistanceMeters: 111194.93, RadiusMeters: 100},
			wantStatus: http.StatusForbidden,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, 111195.0, body["distance_meters"])
				assert.Equal(t, 100.0, body["radius_meters"])
			},
		},
		{
			name:       "incorrect answer",
			err:        service.ErrIncorrectAnswer,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "already completed",
			err:        service.ErrAlreadyCompleted,
			wantStatus: http.StatusConflict,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["already_completed"])
			},
		},
		{
			name:       "not started",
			err:        service.ErrNotStarted,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "catalog inconsistency",
			err:        fmt.Errorf("%w: hunt has no clue number 2", service.ErrCatalogInconsistency),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "store failure",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "geofence distance near the antipode stays finite",
			err:        &service.GeofenceError{DistanceMeters: geo.Distance(geo.Point{Latitude: -86.78, Longitude: -179}, geo.Point{Latitude: 86.78, Longitude: 1}), RadiusMeters: 100},
			wantStatus: http.StatusForbidden,
			check: func(t *testing.T, body map[string]any) {
				assert.InDelta(t, 20015087.0, body["distance_meters"], 1000)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			if tt.err != nil {
				s.hunts.On("Solve", mock.Anything, participantID, huntID, sub).Return(nil, tt.err)
			} else {
				s.hunts.On("Solve", mock.Anything, participantID, huntID, sub).Return(tt.result, nil)
			}

			w := s.do(t, http.MethodPost, path, telegramHeader(participantID), body)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.check != nil {
				tt.check(t, decodeBody(t, w))
			}
		})
	}

	t.Run("missing coordinates", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, path, telegramHeader(participantID), gin.H{"answer": "Lighthouse"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.hunts.AssertNotCalled(t, "Solve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHuntRoutes_CompletionReturnsPrize(t *testing.T) {
	huntID := uuid.New()
	s := newTestServer(t)

	cred, err := credential.NewIssuer(nil).Issue(huntID, participantID, 15)
	require.NoError(t, err)
	done := time.Now()

	s.hunts.On("Solve", mock.Anything, participantID, huntID, mock.Anything).Return(&model.SolveResult{
		Progress: &model.Progress{
			HuntID:            huntID,
			UserTelegramID:    participantID,
			CurrentClueNumber: 2,
			CompletedAt:       &done,
			PrizeCouponCode:   &cred.CouponCode,
			PrizeQRPayload:    &cred.Payload,
		},
		Completed:      true,
		PrizeGenerated: true,
		TotalClues:     2,
	}, nil)

	w := s.do(t, http.MethodPost, "/api/v1/hunts/"+huntID.String()+"/solve", telegramHeader(participantID),
		gin.H{"answer": "church", "user_latitude": 36.01, "user_longitude": 14.21})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["completed"])
	assert.NotContains(t, body, "next_clue")

	prize := body["progress"].(map[string]any)["prize"].(map[string]any)
	assert.Equal(t, cred.CouponCode, prize["coupon_code"])
	assert.Equal(t, 15.0, prize["discount_percentage"])
	assert.Equal(t, cred.Payload, prize["qr_payload"])
}

func TestHuntRoutes_CurrentClue(t *testing.T) {
	huntID := uuid.New()
	path := "/api/v1/hunts/" + huntID.String() + "/clue"

	t.Run("completed hunt has no current clue", func(t *testing.T) {
		s := newTestServer(t)
		s.hunts.On("CurrentClue", mock.Anything, participantID, huntID).Return(nil, nil, service.ErrAlreadyCompleted)

		w := s.do(t, http.MethodGet, path, telegramHeader(participantID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["already_completed"])
	})

	t.Run("returns clue and progress", func(t *testing.T) {
		s := newTestServer(t)
		s.hunts.On("CurrentClue", mock.Anything, participantID, huntID).Return(
			&model.Clue{ClueID: uuid.New(), HuntID: huntID, ClueNumber: 1, ClueText: "text"},
			&model.ProgressStatus{
				Progress:   &model.Progress{HuntID: huntID, CurrentClueNumber: 1},
				Hunt:       &model.Hunt{HuntID: huntID},
				TotalClues: 3,
			}, nil)

		w := s.do(t, http.MethodGet, path, telegramHeader(participantID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, 3.0, body["progress"].(map[string]any)["total_clues"])
		assert.NotContains(t, body["clue"].(map[string]any), "answer")
	})
}

func TestHuntRoutes_StartStopAndPrize(t *testing.T) {
	huntID := uuid.New()
	base := "/api/v1/hunts/" + huntID.String()

	s := newTestServer(t)
	s.hunts.On("Start", mock.Anything, participantID, huntID).Return(&model.Progress{
		ProgressID:        uuid.New(),
		HuntID:            huntID,
		UserTelegramID:    participantID,
		CurrentClueNumber: 1,
		StartedAt:         time.Now(),
	}, nil)
	s.hunts.On("Stop", mock.Anything, participantID, huntID).Return(nil)
	s.hunts.On("PrizeImage", mock.Anything, participantID, huntID).Return([]byte("png"), nil)

	w := s.do(t, http.MethodPost, base+"/start", telegramHeader(participantID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decodeBody(t, w)["current_clue_number"])

	w = s.do(t, http.MethodGet, base+"/prize/qr", telegramHeader(participantID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png", w.Body.String())

	w = s.do(t, http.MethodDelete, base+"/progress", telegramHeader(participantID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	t.Run("participant is forbidden", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/api/v1/admin/hunts", telegramHeader(participantID), gin.H{"name": "Old Town"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		s.catalog.AssertNotCalled(t, "CreateHunt", mock.Anything, mock.Anything)
	})

	t.Run("create hunt", func(t *testing.T) {
		s := newTestServer(t)
		s.catalog.On("CreateHunt", mock.Anything, mock.MatchedBy(func(h *model.Hunt) bool {
			return h.Name == "Old Town" && h.PrizeDiscountPercentage != nil && *h.PrizeDiscountPercentage == 15
		})).Return(&model.Hunt{HuntID: uuid.New(), Name: "Old Town"}, nil)

		w := s.do(t, http.MethodPost, "/api/v1/admin/hunts", telegramHeader(adminID),
			gin.H{"name": "Old Town", "prize_discount_percentage": 15})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("invalid discount", func(t *testing.T) {
		s := newTestServer(t)
		s.catalog.On("CreateHunt", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: prize discount must be between 1 and 100", service.ErrValidation))

		w := s.do(t, http.MethodPost, "/api/v1/admin/hunts", telegramHeader(adminID),
			gin.H{"name": "Old Town", "prize_discount_percentage": 500})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("add clue requires coordinates", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/api/v1/admin/hunts/"+uuid.NewString()+"/clues", telegramHeader(adminID),
			gin.H{"clue_text": "text", "answer": "a"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete clue participants are still on", func(t *testing.T) {
		s := newTestServer(t)
		clueID := uuid.New()
		s.catalog.On("DeleteClue", mock.Anything, clueID).Return(service.ErrClueInUse)

		w := s.do(t, http.MethodDelete, "/api/v1/admin/clues/"+clueID.String(), telegramHeader(adminID), nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("delete unknown clue", func(t *testing.T) {
		s := newTestServer(t)
		clueID := uuid.New()
		s.catalog.On("DeleteClue", mock.Anything, clueID).Return(service.ErrClueNotFound)

		w := s.do(t, http.MethodDelete, "/api/v1/admin/clues/"+clueID.String(), telegramHeader(adminID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMerchantRoutes_Redeem(t *testing.T) {
	huntID := uuid.New()
	redemption := &model.Redemption{
		RedemptionID:   uuid.New(),
		HuntID:         huntID,
		UserTelegramID: participantID,
		CouponCode:     "A1B2C3",
		MerchantID:     "cafe-1",
		RedeemedAt:     time.Now(),
	}

	tests := []struct {
		name       string
		result     *model.RedemptionResult
		err        error
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "redeemed",
			result:     &model.RedemptionResult{Redemption: redemption, HuntName: "Old Town", DiscountPercentage: 15},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["success"])
				assert.Equal(t, false, body["already_redeemed"])
				assert.Equal(t, 15.0, body["discount_percentage"])
			},
		},
		{
			name:       "already redeemed",
			result:     &model.RedemptionResult{Redemption: redemption, AlreadyRedeemed: true, HuntName: "Old Town", DiscountPercentage: 15},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["already_redeemed"])
				assert.Equal(t, "cafe-1", body["redemption"].(map[string]any)["merchant_id"])
			},
		},
		{
			name:       "invalid credential",
			err:        fmt.Errorf("%w: malformed", service.ErrInvalidCredential),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "hunt not completed",
			err:        service.ErrNotStarted,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "coupon mismatch",
			err:        service.ErrCouponMismatch,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			token, err := s.merchantAuth.IssueToken("cafe-1", "Cafe One")
			require.NoError(t, err)

			if tt.err != nil {
				s.redemptions.On("Redeem", mock.Anything, "cafe-1", "payload").Return(nil, tt.err)
			} else {
				s.redemptions.On("Redeem", mock.Anything, "cafe-1", "payload").Return(tt.result, nil)
			}

			w := s.do(t, http.MethodPost, "/api/v1/merchant/redeem", "Bearer "+token, gin.H{"scanned_payload": "payload"})

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.check != nil {
				tt.check(t, decodeBody(t, w))
			}
		})
	}

	t.Run("participant credentials are not merchant credentials", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/api/v1/merchant/redeem", telegramHeader(participantID), gin.H{"scanned_payload": "payload"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMerchantRoutes_ListRedemptions(t *testing.T) {
	s := newTestServer(t)
	token, err := s.merchantAuth.IssueToken("cafe-1", "Cafe One")
	require.NoError(t, err)

	s.redemptions.On("History", mock.Anything, "cafe-1", uint64(10)).Return([]*model.Redemption{
		{RedemptionID: uuid.New(), HuntID: uuid.New(), MerchantID: "cafe-1", RedeemedAt: time.Now()},
	}, nil)

	w := s.do(t, http.MethodGet, "/api/v1/merchant/redemptions?limit=10", "Bearer "+token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out, 1)

	w = s.do(t, http.MethodGet, "/api/v1/merchant/redemptions?limit=abc", "Bearer "+token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
